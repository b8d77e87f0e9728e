package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"handsoff/internal/models"
	"handsoff/internal/providers"
	"handsoff/internal/structures"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/validate"
	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const defaultPageSize = 200

// touchRecordRow is keyed by the timestamp so FindInBatches pages in
// chronological order.
type touchRecordRow struct {
	TimestampNs int64     `gorm:"column:timestamp_ns;primaryKey;autoIncrement:false"`
	ID          uuid.UUID `gorm:"type:text;uniqueIndex;not null"`
	DeviceName  string    `gorm:"not null"`
	AppVersion  string    `gorm:"not null"`
}

func (touchRecordRow) TableName() string { return "touch_records" }

func rowFromRecord(rec models.TouchRecord) touchRecordRow {
	return touchRecordRow{
		TimestampNs: rec.Key(),
		ID:          rec.ID,
		DeviceName:  rec.DeviceName,
		AppVersion:  rec.AppVersion,
	}
}

func (r touchRecordRow) record() models.TouchRecord {
	return models.TouchRecord{
		ID:         r.ID,
		DeviceName: r.DeviceName,
		Timestamp:  time.Unix(0, r.TimestampNs).UTC(),
		AppVersion: r.AppVersion,
		Origin:     models.OriginRemote,
	}
}

// GormDatabase is the record store backed by SQLite through gorm.
type GormDatabase struct {
	db             *gorm.DB
	logger         providers.Logger
	busyRetryAfter time.Duration
	pageSize       int

	mu          sync.Mutex
	auth        models.AuthStatus
	subscribers map[int]func(models.AuthStatus)
	nextSub     int
	highWater   int64
}

func NewGormDatabase(conf *structures.Config, logger providers.Logger) (*GormDatabase, func(), error) {
	auth, err := models.ParseAuthStatus(conf.Database.AuthStatus)
	if err != nil {
		return nil, nil, err
	}

	lvl := gormlogger.Silent
	if conf.Database.LogSQL {
		lvl = gormlogger.Info
	}
	db, err := gorm.Open(sqlite.Open(conf.Database.DSN), &gorm.Config{
		Logger: gormlogger.New(log.New(log.Writer(), "", log.LstdFlags), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  lvl,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", conf.Database.DSN, err)
	}
	if err = db.AutoMigrate(&touchRecordRow{}); err != nil {
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}

	pageSize := conf.Database.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	d := &GormDatabase{
		db:             db,
		logger:         logger,
		busyRetryAfter: conf.Database.BusyRetryAfter,
		pageSize:       pageSize,
		auth:           auth,
		subscribers:    make(map[int]func(models.AuthStatus)),
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return d, cleanup, nil
}

func (d *GormDatabase) SaveRecord(ctx context.Context, record models.TouchRecord) error {
	return d.SaveRecords(ctx, []models.TouchRecord{record})
}

// SaveRecords writes the batch in one transaction. Records already stored
// are skipped, so re-sending a batch succeeds.
func (d *GormDatabase) SaveRecords(ctx context.Context, batch []models.TouchRecord) error {
	if err := d.authorized(); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	rows := make([]touchRecordRow, 0, len(batch))
	for _, rec := range batch {
		if err := validateRecord(rec); err != nil {
			kind := models.KindBatchPartialFailure
			if len(batch) == 1 {
				kind = models.KindFatal
			}
			return models.NewSyncError(kind, fmt.Errorf("record %s: %w", rec.ID, err))
		}
		rows = append(rows, rowFromRecord(rec))
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, d.pageSize).Error
	})
	if err != nil {
		return d.classify(err)
	}
	return nil
}

func validateRecord(rec models.TouchRecord) error {
	if rec.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	v := validate.Struct(&rec)
	if !v.Validate() {
		return errors.New(v.Errors.One())
	}
	return nil
}

func (d *GormDatabase) FetchRecords(ctx context.Context, since time.Time) ([]models.TouchRecord, error) {
	if err := d.authorized(); err != nil {
		return nil, err
	}
	return d.fetchAfter(ctx, since.UnixNano()-1)
}

// FetchLatestRecords returns records timestamped after the newest one this
// store returned so far. A record written later with an older timestamp is
// only seen by FetchRecords.
func (d *GormDatabase) FetchLatestRecords(ctx context.Context) ([]models.TouchRecord, error) {
	if err := d.authorized(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	cursor := d.highWater
	d.mu.Unlock()
	return d.fetchAfter(ctx, cursor)
}

func (d *GormDatabase) fetchAfter(ctx context.Context, afterNs int64) ([]models.TouchRecord, error) {
	var (
		out  []models.TouchRecord
		rows []touchRecordRow
	)
	res := d.db.WithContext(ctx).
		Where("timestamp_ns > ?", afterNs).
		FindInBatches(&rows, d.pageSize, func(tx *gorm.DB, batch int) error {
			for _, row := range rows {
				out = append(out, row.record())
			}
			return nil
		})
	if res.Error != nil {
		return nil, d.classify(res.Error)
	}

	if n := len(out); n > 0 {
		d.mu.Lock()
		if newest := out[n-1].Key(); newest > d.highWater {
			d.highWater = newest
		}
		d.mu.Unlock()
	}
	return out, nil
}

func (d *GormDatabase) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return models.NewSyncError(models.KindNetworkFailure, err)
	}
	if err = sqlDB.PingContext(ctx); err != nil {
		return models.NewSyncError(models.KindNetworkFailure, err)
	}
	return nil
}

func (d *GormDatabase) AuthStatus() models.AuthStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.auth
}

func (d *GormDatabase) OnAuthStatusChanged(fn func(models.AuthStatus)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSub
	d.nextSub++
	d.subscribers[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subscribers, id)
	}
}

// SetAuthStatus changes the account status and notifies subscribers on a
// separate goroutine.
func (d *GormDatabase) SetAuthStatus(status models.AuthStatus) {
	d.mu.Lock()
	if d.auth == status {
		d.mu.Unlock()
		return
	}
	d.auth = status
	subs := make([]func(models.AuthStatus), 0, len(d.subscribers))
	for _, fn := range d.subscribers {
		subs = append(subs, fn)
	}
	d.mu.Unlock()

	d.logger.Infof(providers.TypeSync, "Account status changed to %s", status)
	go func() {
		for _, fn := range subs {
			fn(status)
		}
	}()
}

func (d *GormDatabase) authorized() error {
	status := d.AuthStatus()
	if status != models.AuthAvailable {
		return models.NewSyncError(models.KindAuthenticationFailure, fmt.Errorf("account status is %s", status))
	}
	return nil
}

// classify maps driver errors onto sync error kinds. Only constraint
// violations reject the data itself; read-only, full, I/O and unknown
// failures leave the records worth retrying.
func (d *GormDatabase) classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.Is(err, driver.ErrBadConn):
		return models.NewSyncError(models.KindNetworkFailure, err)
	case isConstraint(err):
		return models.NewSyncError(models.KindFatal, err)
	default:
		return models.NewTransientError(d.busyRetryAfter, err)
	}
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) || errors.Is(err, gorm.ErrCheckConstraintViolated)
}
