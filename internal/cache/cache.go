// Package cache provides a short-lived, time-boxed cache for per-audience
// metadata. Entries expire after a fixed TTL and the whole cache is flushed
// when feed settings change.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value   T
	expires time.Time
}

// TTL caches values by key with a fixed expiry.
type TTL[T any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry[T]
	now     func() time.Time
}

// NewTTL creates a cache whose entries expire after ttl.
func NewTTL[T any](ttl time.Duration) *TTL[T] {
	return &TTL[T]{
		ttl:     ttl,
		entries: make(map[string]entry[T]),
		now:     time.Now,
	}
}

// Get returns the cached value for key if it has not expired.
func (c *TTL[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expires) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value for key, restarting its expiry.
func (c *TTL[T]) Set(key string, value T) {
	c.mu.Lock()
	c.entries[key] = entry[T]{value: value, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Flush drops every entry.
func (c *TTL[T]) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]entry[T])
	c.mu.Unlock()
}
