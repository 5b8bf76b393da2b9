package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// LayeredCache checks a fast L1 before a persistent L2 and promotes L2 hits
type LayeredCache struct {
	l1 Cache
	l2 Cache

	hits   atomic.Int64
	misses atomic.Int64
}

// NewLayeredCache creates a new layered cache
func NewLayeredCache(l1, l2 Cache) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2}
}

func (c *LayeredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, found := c.l1.Get(ctx, key); found {
		c.hits.Add(1)
		return val, true
	}

	if val, found := c.l2.Get(ctx, key); found {
		_ = c.l1.Set(ctx, key, val, 0)
		c.hits.Add(1)
		return val, true
	}

	c.misses.Add(1)
	return nil, false
}

func (c *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l1.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.l2.Set(ctx, key, value, ttl)
}

func (c *LayeredCache) Delete(ctx context.Context, key string) error {
	_ = c.l1.Delete(ctx, key)
	return c.l2.Delete(ctx, key)
}

func (c *LayeredCache) Clear(ctx context.Context) error {
	_ = c.l1.Clear(ctx)
	return c.l2.Clear(ctx)
}

// Stats returns hit and miss counters
func (c *LayeredCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
