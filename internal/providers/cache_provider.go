package providers

import (
	"errors"
	"handsoff/internal/structures"
	"math"
	"time"

	"github.com/coocood/freecache"
)

// CacheProviderInterface holds rendered GET bodies keyed by route and day.
type CacheProviderInterface interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

type CacheProvider struct {
	cache  *freecache.Cache
	ttl    int
	logger Logger
}

func NewCacheProvider(conf *structures.Config, logger Logger) CacheProviderInterface {
	if !conf.Cache.Enabled || conf.Cache.Size <= 0 {
		logger.Infof(TypeApp, "Response cache is off")
		return &noopCache{}
	}

	ttl := expirySeconds(conf.Cache.TTL)
	logger.Infof(TypeApp, "Response cache on: %dMB, entries expire after %ds", conf.Cache.Size, ttl)

	return &CacheProvider{
		cache:  freecache.NewCache(conf.Cache.Size << 20),
		ttl:    ttl,
		logger: logger,
	}
}

// expirySeconds rounds d up to whole seconds, never below one.
func expirySeconds(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}

func (c *CacheProvider) Get(key string) ([]byte, bool) {
	body, err := c.cache.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	return body, true
}

// Set stores body for the configured TTL. Bodies too large for a cache
// segment are not stored and the next request renders them again.
func (c *CacheProvider) Set(key string, body []byte) {
	err := c.cache.Set([]byte(key), body, c.ttl)
	if errors.Is(err, freecache.ErrLargeEntry) {
		c.logger.Warnf(TypeGet, "Response for %s is %d bytes, too large to cache", key, len(body))
	}
}

type noopCache struct{}

func (n *noopCache) Get(_ string) ([]byte, bool) { return nil, false }
func (n *noopCache) Set(_ string, _ []byte)      {}
