package models

import (
	"errors"
	"fmt"
	"time"
)

type SyncErrorKind string

const (
	KindNetworkFailure        SyncErrorKind = "network_failure"
	KindAuthenticationFailure SyncErrorKind = "authentication_failure"
	KindTransientServerError  SyncErrorKind = "transient_server_error"
	KindBatchPartialFailure   SyncErrorKind = "batch_partial_failure"
	KindFatal                 SyncErrorKind = "fatal_error"
)

// SyncError is the error type surfaced by the remote store.
type SyncError struct {
	Kind SyncErrorKind
	// RetryAfter is the server-specified delay for transient errors, zero if none.
	RetryAfter time.Duration
	Err        error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("[%s]", e.Kind)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func NewSyncError(kind SyncErrorKind, err error) *SyncError {
	return &SyncError{Kind: kind, Err: err}
}

func NewTransientError(retryAfter time.Duration, err error) *SyncError {
	return &SyncError{Kind: KindTransientServerError, RetryAfter: retryAfter, Err: err}
}

// ClassifySyncError returns the kind and retry delay of err. Errors that are
// not a *SyncError are treated as transient without a delay.
func ClassifySyncError(err error) (SyncErrorKind, time.Duration) {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Kind, syncErr.RetryAfter
	}
	return KindTransientServerError, 0
}

func IsSyncErrorKind(err error, kind SyncErrorKind) bool {
	var syncErr *SyncError
	return errors.As(err, &syncErr) && syncErr.Kind == kind
}
