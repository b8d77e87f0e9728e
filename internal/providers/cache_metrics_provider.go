package providers

import "handsoff/internal/structures"

// MetricsCacheProvider reports every lookup on the response cache as a hit
// or a miss.
type MetricsCacheProvider struct {
	inner   CacheProviderInterface
	metrics MetricsProviderInterface
}

func (c *MetricsCacheProvider) Get(key string) ([]byte, bool) {
	body, hit := c.inner.Get(key)
	if !hit {
		c.metrics.IncCacheMisses()
		return nil, false
	}
	c.metrics.IncCacheHits()
	return body, true
}

func (c *MetricsCacheProvider) Set(key string, body []byte) {
	c.inner.Set(key, body)
}

// NewInstrumentedCacheProvider counts lookups only on a real cache; a
// disabled one would report every request as a miss.
func NewInstrumentedCacheProvider(conf *structures.Config, logger Logger, metrics MetricsProviderInterface) CacheProviderInterface {
	inner := NewCacheProvider(conf, logger)
	if _, off := inner.(*noopCache); off {
		return inner
	}
	return &MetricsCacheProvider{inner: inner, metrics: metrics}
}
