package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type cacheMetricsTestInner struct {
	data map[string][]byte
}

func (c *cacheMetricsTestInner) Get(key string) ([]byte, bool) {
	v, ok := c.data[key]
	return v, ok
}
func (c *cacheMetricsTestInner) Set(key string, value []byte) {
	c.data[key] = value
}

func TestMetricsCacheProvider_Hit(t *testing.T) {
	inner := &cacheMetricsTestInner{data: map[string][]byte{"records:2026-03-14": []byte("[]")}}
	metrics := &recordingMetrics{}
	cache := &MetricsCacheProvider{inner: inner, metrics: metrics}

	val, ok := cache.Get("records:2026-03-14")
	assert.True(t, ok)
	assert.Equal(t, []byte("[]"), val)
	assert.Equal(t, 1, metrics.cacheHits)
	assert.Equal(t, 0, metrics.cacheMisses)
}

func TestMetricsCacheProvider_Miss(t *testing.T) {
	inner := &cacheMetricsTestInner{data: map[string][]byte{}}
	metrics := &recordingMetrics{}
	cache := &MetricsCacheProvider{inner: inner, metrics: metrics}

	val, ok := cache.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.Equal(t, 0, metrics.cacheHits)
	assert.Equal(t, 1, metrics.cacheMisses)
}

func TestMetricsCacheProvider_SetDelegates(t *testing.T) {
	inner := &cacheMetricsTestInner{data: map[string][]byte{}}
	cache := &MetricsCacheProvider{inner: inner, metrics: &recordingMetrics{}}

	cache.Set("hourly:2026-03-14", []byte("[0]"))

	val, ok := inner.Get("hourly:2026-03-14")
	assert.True(t, ok)
	assert.Equal(t, []byte("[0]"), val)
}

func TestNewInstrumentedCacheProvider_DisabledSkipsMetrics(t *testing.T) {
	metrics := &recordingMetrics{}
	c := NewInstrumentedCacheProvider(cacheConfig(false, 1, time.Second), &cacheTestLogger{}, metrics)
	assert.IsType(t, &noopCache{}, c)

	c.Get("x")
	assert.Equal(t, 0, metrics.cacheMisses)
}

func TestNewInstrumentedCacheProvider_EnabledWraps(t *testing.T) {
	metrics := &recordingMetrics{}
	c := NewInstrumentedCacheProvider(cacheConfig(true, 1, time.Second), &cacheTestLogger{}, metrics)
	assert.IsType(t, &MetricsCacheProvider{}, c)

	c.Set("a", []byte("1"))
	c.Get("a")
	c.Get("b")
	assert.Equal(t, 1, metrics.cacheHits)
	assert.Equal(t, 1, metrics.cacheMisses)
}
