// Package cache provides a generic TTL cache
package cache

import (
	"sync"
	"time"
)

// entry wraps a cached value with its expiration time
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a thread-safe map with per-entry TTL expiration.
// Expired entries are invisible to readers and swept periodically.
type Cache[K comparable, V any] struct {
	entries map[K]entry[V]
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// New creates a cache with the specified TTL and starts its sweeper
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		entries: make(map[K]entry[V]),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Get returns the value for key if present and not expired
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the cache's TTL
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Fetch returns the cached value for key, or calls load and caches its
// result when load reports ok. Misses are never cached so a transient
// upstream failure is retried on the next call.
func (c *Cache[K, V]) Fetch(key K, load func() (V, bool)) (V, bool) {
	if v, ok := c.Get(key); ok {
		return v, true
	}

	v, ok := load()
	if ok {
		c.Set(key, v)
	}
	return v, ok
}

// Delete removes a key
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of entries, including expired ones not yet swept
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the sweeper. It is safe to call more than once.
func (c *Cache[K, V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache[K, V]) sweep() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[K, V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
