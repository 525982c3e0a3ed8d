package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TTL is a concurrency-safe string-keyed cache whose entries expire after a
// fixed duration. Expired entries are purged by a janitor every cleanup.
type TTL[V any] struct {
	items *gocache.Cache
}

func NewTTL[V any](ttl, cleanup time.Duration) *TTL[V] {
	return &TTL[V]{items: gocache.New(ttl, cleanup)}
}

func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	value, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return value, true
}

func (c *TTL[V]) Set(key string, value V) {
	c.items.SetDefault(key, value)
}
