package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

const _TTL = time.Minute * 10

// Cache holds query results for fully elapsed calendar dates. Those rows are
// insert-only history and can never change, so a short TTL is purely a memory
// bound, not a consistency concern.
type Cache struct {
	cache *ristretto.Cache
}

func NewCache() (*Cache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,     // number of keys to track frequency of
		MaxCost:     1 << 24, // maximum cost of cache (16MB)
		BufferItems: 64,      // number of keys per Get buffer
	})
	if err != nil {
		return nil, err
	}

	return &Cache{
		cache: cache,
	}, nil
}

func (c *Cache) Set(key interface{}, value interface{}) {
	c.cache.SetWithTTL(key, value, 1, _TTL)
}

func (c *Cache) Get(key interface{}) (interface{}, bool) {
	return c.cache.Get(key)
}

func (c *Cache) SetWithTTL(key interface{}, value interface{}, ttl time.Duration) {
	c.cache.SetWithTTL(key, value, 1, ttl)
}

func (c *Cache) Clear() {
	c.cache.Close()
}
