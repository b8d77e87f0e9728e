package providers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingMetrics struct {
	mu              sync.Mutex
	requestEndpoint string
	requestStatus   int
	requestCalls    int
	durationCalls   int
	cacheHits       int
	cacheMisses     int
}

func (m *recordingMetrics) IncRequestsTotal(endpoint string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestEndpoint = endpoint
	m.requestStatus = status
	m.requestCalls++
}
func (m *recordingMetrics) ObserveRequestDuration(_ string, _ time.Duration) { m.durationCalls++ }
func (m *recordingMetrics) IncCacheHits()                                    { m.cacheHits++ }
func (m *recordingMetrics) IncCacheMisses()                                  { m.cacheMisses++ }
func (m *recordingMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (m *recordingMetrics) IncAlerts(_ string)                               {}
func (m *recordingMetrics) IncRecordsCreated(_ string, _ int)                {}
func (m *recordingMetrics) AddSyncOutcome(_ string, _ int)                   {}
func (m *recordingMetrics) SetPendingRecords(_ int)                          {}

func routesFor(urls ...string) RouterProviderInterface {
	rp := NewRouterProvider()
	for _, u := range urls {
		rp.Get(u, http.NotFoundHandler())
	}
	return rp
}

func TestMetricsMiddleware_CapturesStatusAndEndpoint(t *testing.T) {
	metrics := &recordingMetrics{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	mw := MetricsMiddleware(metrics, routesFor("/detections"), handler)

	req := httptest.NewRequest(http.MethodPost, "/detections", nil)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	assert.Equal(t, 1, metrics.requestCalls)
	assert.Equal(t, "/detections", metrics.requestEndpoint)
	assert.Equal(t, http.StatusAccepted, metrics.requestStatus)
	assert.Equal(t, 1, metrics.durationCalls)
}

func TestMetricsMiddleware_DefaultStatus200(t *testing.T) {
	metrics := &recordingMetrics{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	mw := MetricsMiddleware(metrics, routesFor("/alert"), handler)

	req := httptest.NewRequest(http.MethodGet, "/alert", nil)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, metrics.requestStatus)
}

func TestMetricsMiddleware_UnknownPathFolded(t *testing.T) {
	metrics := &recordingMetrics{}
	mw := MetricsMiddleware(metrics, routesFor("/alert"), http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/wp-admin/login.php", nil)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	assert.Equal(t, "other", metrics.requestEndpoint)
	assert.Equal(t, http.StatusNotFound, metrics.requestStatus)
}

func TestStatusWriter_WriteHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rr, status: http.StatusOK}

	sw.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, sw.status)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
