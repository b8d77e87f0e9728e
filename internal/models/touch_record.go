package models

import (
	"time"

	"github.com/google/uuid"
)

type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// TouchRecord is one detected face touch. Two records are the same touch
// when their timestamps are equal, whatever the other fields say.
type TouchRecord struct {
	ID         uuid.UUID `json:"id"`
	DeviceName string    `json:"deviceName" validate:"required"`
	Timestamp  time.Time `json:"timestamp"`
	AppVersion string    `json:"appVersion" validate:"required"`
	Origin     Origin    `json:"origin"`
}

func NewLocalTouchRecord(at time.Time, deviceName, appVersion string) TouchRecord {
	return TouchRecord{
		ID:         uuid.New(),
		DeviceName: deviceName,
		Timestamp:  at,
		AppVersion: appVersion,
		Origin:     OriginLocal,
	}
}

// Key is the identity used for equality, dedup and queue set-difference.
func (r TouchRecord) Key() int64 {
	return r.Timestamp.UnixNano()
}

func (r TouchRecord) Equal(other TouchRecord) bool {
	return r.Timestamp.Equal(other.Timestamp)
}

// AsRemote returns a copy marked as materialized from the remote store.
func (r TouchRecord) AsRemote() TouchRecord {
	r.Origin = OriginRemote
	return r
}

// Detection is a single event from the detection pipeline.
type Detection struct {
	Touching   bool    `json:"touching"`
	Confidence float64 `json:"confidence"`
}

// HourlyCounts holds the number of touches per hour of a day.
type HourlyCounts [24]int

// PendingFile is the on-disk envelope of the pending-send queue.
type PendingFile struct {
	Version int           `json:"version"`
	SavedAt time.Time     `json:"saved_at"`
	Records []TouchRecord `json:"records"`
}

const PendingFileVersion = 1
