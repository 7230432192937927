// Package cache provides a small in-process TTL cache used for board
// popularity metrics (contributor and evaluator counts) that are expensive
// to recompute on every listing request.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value   interface{}
	expires time.Time
}

// TTLCache is a concurrency-safe cache with per-entry expiry
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a TTLCache whose entries expire after ttl
func New(ttl time.Duration) *TTLCache {
	return &TTLCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for key, or ok=false if absent or expired
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the cache's TTL
func (c *TTLCache) Set(key string, value interface{}) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// GetOrSet returns the cached value for key, computing and storing it via
// fill on a miss. The fill function may be called concurrently by multiple
// goroutines on a cold key; the last write wins.
func (c *TTLCache) GetOrSet(key string, fill func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fill()
	if err != nil {
		return nil, err
	}
	c.Set(key, v)
	return v, nil
}

// Invalidate removes key from the cache
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
