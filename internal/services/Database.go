package services

import (
	"context"
	"handsoff/internal/models"
	"time"
)

// Database is the remote store touch records are replicated to. Errors are
// expected to be *models.SyncError so the sync manager can pick a policy.
type Database interface {
	SaveRecord(ctx context.Context, record models.TouchRecord) error
	SaveRecords(ctx context.Context, batch []models.TouchRecord) error
	// FetchRecords returns records with a timestamp at or after since.
	FetchRecords(ctx context.Context, since time.Time) ([]models.TouchRecord, error)
	// FetchLatestRecords returns records newer than anything this store
	// handed out before.
	FetchLatestRecords(ctx context.Context) ([]models.TouchRecord, error)
	AuthStatus() models.AuthStatus
	// OnAuthStatusChanged registers fn for asynchronous auth-status
	// notifications. The returned func unregisters it.
	OnAuthStatusChanged(fn func(models.AuthStatus)) (cancel func())
	Ping(ctx context.Context) error
}
