package providers

import (
	"handsoff/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	IncAlerts(edge string)
	IncRecordsCreated(origin string, count int)
	AddSyncOutcome(outcome string, count int)
	SetPendingRecords(count int)
}

const (
	SyncOutcomeSaved   = "saved"
	SyncOutcomeRetry   = "retry"
	SyncOutcomeDropped = "dropped"
)

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	alertsTotal         *prometheus.CounterVec
	recordsTotal        *prometheus.CounterVec
	syncOutcomes        *prometheus.CounterVec
	pendingRecords      prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncAlerts(edge string) {
	m.alertsTotal.WithLabelValues(edge).Inc()
}

func (m *MetricsProvider) IncRecordsCreated(origin string, count int) {
	m.recordsTotal.WithLabelValues(origin).Add(float64(count))
}

func (m *MetricsProvider) AddSyncOutcome(outcome string, count int) {
	m.syncOutcomes.WithLabelValues(outcome).Add(float64(count))
}

func (m *MetricsProvider) SetPendingRecords(count int) {
	m.pendingRecords.Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "handsoff_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "handsoff_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "handsoff_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "handsoff_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "handsoff_persistence_duration_seconds",
			Help:    "Duration of pending queue persistence in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		alertsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "handsoff_alerts_total",
			Help: "Alert edges delivered to observers",
		}, []string{"edge"}),

		recordsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "handsoff_records_total",
			Help: "Touch records added to the visible collection",
		}, []string{"origin"}),

		syncOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "handsoff_sync_records_total",
			Help: "Records processed by the sync manager, by outcome",
		}, []string{"outcome"}),

		pendingRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "handsoff_pending_records",
			Help: "Records waiting in the pending-send queue",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) IncAlerts(_ string)                               {}
func (n *noopMetrics) IncRecordsCreated(_ string, _ int)                {}
func (n *noopMetrics) AddSyncOutcome(_ string, _ int)                   {}
func (n *noopMetrics) SetPendingRecords(_ int)                          {}
