package testutil

import (
	"context"
	"handsoff/internal/models"
	"handsoff/internal/providers"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns the number of entries logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Logs {
		if e.Level == level {
			n++
		}
	}
	return n
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}

// MockMetrics implements providers.MetricsProviderInterface and keeps totals.
type MockMetrics struct {
	mu             sync.Mutex
	Alerts         map[string]int
	RecordsCreated map[string]int
	SyncOutcomes   map[string]int
	Pending        int
	Requests       int
	CacheHits      int
	CacheMisses    int
	Persists       int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Alerts:         make(map[string]int),
		RecordsCreated: make(map[string]int),
		SyncOutcomes:   make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
}

func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persists++
}

func (m *MockMetrics) IncAlerts(edge string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts[edge]++
}

func (m *MockMetrics) IncRecordsCreated(origin string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordsCreated[origin] += count
}

func (m *MockMetrics) AddSyncOutcome(outcome string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SyncOutcomes[outcome] += count
}

func (m *MockMetrics) SetPendingRecords(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pending = count
}

func (m *MockMetrics) Outcome(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SyncOutcomes[outcome]
}

// MockDatabase implements services.Database. Unset funcs succeed; every
// call is recorded. Auth notifications are delivered synchronously.
type MockDatabase struct {
	mu             sync.Mutex
	SaveRecordFn   func(models.TouchRecord) error
	SaveRecordsFn  func([]models.TouchRecord) error
	FetchRecordsFn func(since time.Time) ([]models.TouchRecord, error)
	FetchLatestFn  func() ([]models.TouchRecord, error)
	PingFn         func() error

	SaveRecordCalls  []models.TouchRecord
	SaveRecordsCalls [][]models.TouchRecord
	FetchSinceCalls  []time.Time
	PingCalls        int

	auth        models.AuthStatus
	subscribers map[int]func(models.AuthStatus)
	nextSub     int
}

func NewMockDatabase() *MockDatabase {
	return &MockDatabase{
		auth:        models.AuthAvailable,
		subscribers: make(map[int]func(models.AuthStatus)),
	}
}

func (m *MockDatabase) SaveRecord(_ context.Context, record models.TouchRecord) error {
	m.mu.Lock()
	m.SaveRecordCalls = append(m.SaveRecordCalls, record)
	fn := m.SaveRecordFn
	m.mu.Unlock()
	if fn != nil {
		return fn(record)
	}
	return nil
}

func (m *MockDatabase) SaveRecords(_ context.Context, batch []models.TouchRecord) error {
	m.mu.Lock()
	cp := make([]models.TouchRecord, len(batch))
	copy(cp, batch)
	m.SaveRecordsCalls = append(m.SaveRecordsCalls, cp)
	fn := m.SaveRecordsFn
	m.mu.Unlock()
	if fn != nil {
		return fn(cp)
	}
	return nil
}

func (m *MockDatabase) FetchRecords(_ context.Context, since time.Time) ([]models.TouchRecord, error) {
	m.mu.Lock()
	m.FetchSinceCalls = append(m.FetchSinceCalls, since)
	fn := m.FetchRecordsFn
	m.mu.Unlock()
	if fn != nil {
		return fn(since)
	}
	return nil, nil
}

func (m *MockDatabase) FetchLatestRecords(_ context.Context) ([]models.TouchRecord, error) {
	m.mu.Lock()
	fn := m.FetchLatestFn
	m.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil, nil
}

func (m *MockDatabase) Ping(_ context.Context) error {
	m.mu.Lock()
	m.PingCalls++
	fn := m.PingFn
	m.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil
}

func (m *MockDatabase) AuthStatus() models.AuthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auth
}

func (m *MockDatabase) OnAuthStatusChanged(fn func(models.AuthStatus)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

func (m *MockDatabase) SetAuthStatus(status models.AuthStatus) {
	m.mu.Lock()
	m.auth = status
	subs := make([]func(models.AuthStatus), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(status)
	}
}

// BatchSizes lists the size of every SaveRecords call in order.
func (m *MockDatabase) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := make([]int, len(m.SaveRecordsCalls))
	for i, b := range m.SaveRecordsCalls {
		sizes[i] = len(b)
	}
	return sizes
}

func (m *MockDatabase) SaveRecordsCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SaveRecordsCalls)
}

func (m *MockDatabase) PingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PingCalls
}
