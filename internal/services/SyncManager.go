package services

import (
	"context"
	"fmt"
	"handsoff/internal/models"
	"handsoff/internal/providers"
	"handsoff/internal/structures"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/jonboulle/clockwork"
)

type SyncManagerInterface interface {
	CreateAndSaveRecord(ctx context.Context, at time.Time) (models.TouchRecord, bool)
	OnNetworkOrAuthStateChanged(ctx context.Context, state models.NetworkAuthState)
	SetNetworkAvailable(ctx context.Context, available bool)
	SetAuthStatus(ctx context.Context, status models.AuthStatus)
	Flush(ctx context.Context)
	FetchExistingRecords(ctx context.Context, day time.Time) (int, error)
	FetchLatestRecords(ctx context.Context) (int, error)
	Records() []models.TouchRecord
	RecordsForDay(day time.Time) []models.TouchRecord
	HourlyCounts(day time.Time) models.HourlyCounts
	PendingRecords() []models.TouchRecord
	PendingCount() int
	RestorePending(records []models.TouchRecord)
	State() models.NetworkAuthState
	IsSynced() bool
	Close()
}

// SyncManager owns the visible record collection and the pending-send
// queue. A record leaves the queue only once the store confirmed it or
// rejected it for good.
type SyncManager struct {
	mu          sync.Mutex
	flushMu     sync.Mutex
	conf        *structures.Config
	db          Database
	clock       clockwork.Clock
	logger      providers.Logger
	metrics     providers.MetricsProviderInterface
	records     *models.RecordSet
	pending     []models.TouchRecord
	pendingKeys *roaring64.Bitmap
	state       models.NetworkAuthState
	retryTimer  clockwork.Timer
	unsubscribe func()
}

func NewSyncManager(conf *structures.Config, db Database, clk clockwork.Clock, logger providers.Logger, metrics providers.MetricsProviderInterface) SyncManagerInterface {
	m := &SyncManager{
		conf:        conf,
		db:          db,
		clock:       clk,
		logger:      logger,
		metrics:     metrics,
		records:     models.NewRecordSet(),
		pendingKeys: roaring64.New(),
		state: models.NetworkAuthState{
			IsNetworkAvailable: false,
			AuthStatus:         db.AuthStatus(),
		},
	}
	m.unsubscribe = db.OnAuthStatusChanged(func(status models.AuthStatus) {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Sync.SaveTimeout)
		defer cancel()
		m.SetAuthStatus(ctx, status)
	})
	return m
}

// CreateAndSaveRecord makes the record visible before any remote work, so
// the caller sees it regardless of how the save goes. Returns false when a
// record with the same timestamp already exists.
func (m *SyncManager) CreateAndSaveRecord(ctx context.Context, at time.Time) (models.TouchRecord, bool) {
	rec := models.NewLocalTouchRecord(at, m.conf.Sync.DeviceName, m.conf.Sync.AppVersion)

	m.mu.Lock()
	if !m.records.Insert(rec) {
		m.mu.Unlock()
		return models.TouchRecord{}, false
	}
	favorable := m.state.Favorable()
	if !favorable {
		m.enqueueLocked(rec)
	}
	pending := len(m.pending)
	m.mu.Unlock()

	m.metrics.IncRecordsCreated(string(models.OriginLocal), 1)
	m.metrics.SetPendingRecords(pending)

	if !favorable {
		m.logger.Debugf(providers.TypeSync, "Offline, queued record %s (%d pending)", rec.ID, pending)
		return rec, true
	}

	err := m.db.SaveRecord(ctx, rec)
	if err == nil {
		m.metrics.AddSyncOutcome(providers.SyncOutcomeSaved, 1)
		return rec, true
	}

	kind, retryAfter := models.ClassifySyncError(err)
	switch kind {
	case models.KindFatal, models.KindBatchPartialFailure:
		m.logger.Errorf(providers.TypeSync, "Dropping record %s rejected by store: %s", rec.ID, err)
		m.metrics.AddSyncOutcome(providers.SyncOutcomeDropped, 1)
	default:
		m.logger.Warnf(providers.TypeSync, "Save of record %s failed, queued for retry: %s", rec.ID, err)
		m.mu.Lock()
		m.enqueueLocked(rec)
		pending = len(m.pending)
		m.mu.Unlock()
		m.metrics.AddSyncOutcome(providers.SyncOutcomeRetry, 1)
		m.metrics.SetPendingRecords(pending)
		m.applyFailure(kind, retryAfter)
	}
	return rec, true
}

// bitmapKey maps a record's nanosecond timestamp onto the bitmap domain.
func bitmapKey(rec models.TouchRecord) uint64 {
	return uint64(rec.Key())
}

func (m *SyncManager) enqueueLocked(rec models.TouchRecord) {
	key := bitmapKey(rec)
	if m.pendingKeys.Contains(key) {
		return
	}
	m.pendingKeys.Add(key)
	m.pending = append(m.pending, rec)
}

// OnNetworkOrAuthStateChanged stores state and flushes when it allows syncing.
func (m *SyncManager) OnNetworkOrAuthStateChanged(ctx context.Context, state models.NetworkAuthState) {
	m.updateState(ctx, func(s *models.NetworkAuthState) { *s = state })
}

func (m *SyncManager) SetNetworkAvailable(ctx context.Context, available bool) {
	m.updateState(ctx, func(s *models.NetworkAuthState) { s.IsNetworkAvailable = available })
}

func (m *SyncManager) SetAuthStatus(ctx context.Context, status models.AuthStatus) {
	m.updateState(ctx, func(s *models.NetworkAuthState) { s.AuthStatus = status })
}

func (m *SyncManager) updateState(ctx context.Context, update func(*models.NetworkAuthState)) {
	m.mu.Lock()
	prev := m.state
	update(&m.state)
	state := m.state
	m.mu.Unlock()

	if prev != state {
		m.logger.Infof(providers.TypeSync, "Sync state changed: network=%t auth=%s", state.IsNetworkAvailable, state.AuthStatus)
	}
	if state.Favorable() {
		m.Flush(ctx)
	}
}

type flushResult struct {
	done       *roaring64.Bitmap
	saved      int
	dropped    int
	halted     bool
	haltKind   models.SyncErrorKind
	retryAfter time.Duration
}

// Flush sends a snapshot of the pending queue. Records queued while the
// flush runs are left for the next one.
func (m *SyncManager) Flush(ctx context.Context) {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	m.mu.Lock()
	if !m.state.Favorable() || len(m.pending) == 0 {
		m.mu.Unlock()
		return
	}
	snapshot := make([]models.TouchRecord, len(m.pending))
	copy(snapshot, m.pending)
	m.mu.Unlock()

	res := &flushResult{done: roaring64.New()}
	m.sendBatch(ctx, snapshot, res)

	m.mu.Lock()
	remaining := m.pending[:0:0]
	for _, rec := range m.pending {
		if key := bitmapKey(rec); res.done.Contains(key) {
			m.pendingKeys.Remove(key)
			continue
		}
		remaining = append(remaining, rec)
	}
	m.pending = remaining
	pending := len(m.pending)
	m.mu.Unlock()

	retry := len(snapshot) - res.saved - res.dropped
	m.metrics.AddSyncOutcome(providers.SyncOutcomeSaved, res.saved)
	m.metrics.AddSyncOutcome(providers.SyncOutcomeDropped, res.dropped)
	m.metrics.AddSyncOutcome(providers.SyncOutcomeRetry, retry)
	m.metrics.SetPendingRecords(pending)
	m.logger.Infof(providers.TypeSync, "Flushed %d records: %d saved, %d dropped, %d pending", len(snapshot), res.saved, res.dropped, pending)

	if res.halted {
		m.applyFailure(res.haltKind, res.retryAfter)
	}
}

// sendBatch saves batch, halving it on partial or fatal failures until the
// bad records are isolated. Any other failure halts the flush and leaves
// the unsent records queued.
func (m *SyncManager) sendBatch(ctx context.Context, batch []models.TouchRecord, res *flushResult) {
	if res.halted || len(batch) == 0 {
		return
	}
	if err := ctx.Err(); err != nil {
		res.halted = true
		res.haltKind = models.KindTransientServerError
		return
	}

	err := m.db.SaveRecords(ctx, batch)
	if err == nil {
		for _, rec := range batch {
			res.done.Add(bitmapKey(rec))
		}
		res.saved += len(batch)
		return
	}

	kind, retryAfter := models.ClassifySyncError(err)
	switch kind {
	case models.KindBatchPartialFailure, models.KindFatal:
		if len(batch) == 1 {
			m.logger.Errorf(providers.TypeSync, "Dropping record %s at %s: %s", batch[0].ID, batch[0].Timestamp.Format(time.RFC3339Nano), err)
			res.done.Add(bitmapKey(batch[0]))
			res.dropped++
			return
		}
		mid := len(batch) / 2
		m.sendBatch(ctx, batch[:mid], res)
		m.sendBatch(ctx, batch[mid:], res)
	default:
		m.logger.Warnf(providers.TypeSync, "Batch of %d records not saved: %s", len(batch), err)
		res.halted = true
		res.haltKind = kind
		res.retryAfter = retryAfter
	}
}

func (m *SyncManager) applyFailure(kind models.SyncErrorKind, retryAfter time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch kind {
	case models.KindNetworkFailure:
		m.state.IsNetworkAvailable = false
	case models.KindAuthenticationFailure:
		m.state.AuthStatus = models.AuthSignedOut
	case models.KindTransientServerError:
		if retryAfter > 0 && m.retryTimer == nil {
			m.retryTimer = m.clock.AfterFunc(retryAfter, m.retryFlush)
		}
	}
}

func (m *SyncManager) retryFlush() {
	m.mu.Lock()
	m.retryTimer = nil
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.conf.Sync.SaveTimeout)
	defer cancel()
	m.Flush(ctx)
}

// FetchExistingRecords merges the remote records of day into the visible
// collection and returns how many were new.
func (m *SyncManager) FetchExistingRecords(ctx context.Context, day time.Time) (int, error) {
	recs, err := m.db.FetchRecords(ctx, models.StartOfDay(day))
	if err != nil {
		return 0, fmt.Errorf("fetch records since %s: %w", models.StartOfDay(day).Format(time.DateOnly), err)
	}
	return m.merge(recs), nil
}

func (m *SyncManager) FetchLatestRecords(ctx context.Context) (int, error) {
	recs, err := m.db.FetchLatestRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch latest records: %w", err)
	}
	return m.merge(recs), nil
}

func (m *SyncManager) merge(recs []models.TouchRecord) int {
	m.mu.Lock()
	added := 0
	for _, rec := range recs {
		if m.records.Insert(rec.AsRemote()) {
			added++
		}
	}
	m.mu.Unlock()

	if added > 0 {
		m.metrics.IncRecordsCreated(string(models.OriginRemote), added)
		m.logger.Debugf(providers.TypeSync, "Merged %d remote records (%d fetched)", added, len(recs))
	}
	return added
}

func (m *SyncManager) Records() []models.TouchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records.All()
}

func (m *SyncManager) RecordsForDay(day time.Time) []models.TouchRecord {
	start := models.StartOfDay(day)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records.Between(start, start.AddDate(0, 0, 1))
}

func (m *SyncManager) HourlyCounts(day time.Time) models.HourlyCounts {
	var counts models.HourlyCounts
	for _, rec := range m.RecordsForDay(day) {
		counts[rec.Timestamp.In(day.Location()).Hour()]++
	}
	return counts
}

func (m *SyncManager) PendingRecords() []models.TouchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.TouchRecord, len(m.pending))
	copy(out, m.pending)
	return out
}

func (m *SyncManager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// RestorePending puts records persisted by a previous run back in the queue
// and the visible collection.
func (m *SyncManager) RestorePending(records []models.TouchRecord) {
	m.mu.Lock()
	for _, rec := range records {
		m.records.Insert(rec)
		m.enqueueLocked(rec)
	}
	pending := len(m.pending)
	m.mu.Unlock()

	m.metrics.SetPendingRecords(pending)
}

func (m *SyncManager) State() models.NetworkAuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsSynced backs the "not synced" indicator.
func (m *SyncManager) IsSynced() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Favorable() && len(m.pending) == 0
}

func (m *SyncManager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
}
