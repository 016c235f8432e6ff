// Package cache provides a generic in-memory TTL cache.
//
// Entries expire ttl after they were written. Get never returns an expired
// entry; expired entries are physically removed by a periodic sweep.
//
// Uses:
//   - session detail views, served again while the session's write version
//     is unchanged (see services.SyncService)
//
// Expiry is a bound on memory, not on freshness. Callers that need every read
// to observe the latest write store a version next to the value and compare
// it on Get.
//
// Thread safety:
// a sync.RWMutex guards the map. Any number of Get calls run in parallel;
// Set, Delete and the sweep take the write lock.
package cache

import (
	"sync"
	"time"
)

// entry is one cached value and the moment it stops being served.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is safe for concurrent use.
//
// K and V are fixed when the cache is built:
//
//	c := cache.New[int64, Snapshot](30*time.Second, time.Minute)
//	c.Set(42, snap)
//	snap, ok := c.Get(42)
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	ttl     time.Duration

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// New starts a cache whose entries live for ttl, swept every cleanupInterval.
//
// The sweep runs on its own goroutine until Close. Without it, keys that are
// written once and never read again would stay in the map forever, since Get
// only hides expired entries.
func New[K comparable, V any](ttl, cleanupInterval time.Duration) *TTLCache[K, V] {
	c := &TTLCache[K, V]{
		entries:     make(map[K]entry[V]),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.evictExpired()
			case <-c.stopCleanup:
				return
			}
		}
	}()

	return c
}

// Get returns the value for key if present and not expired.
//
// An expired entry reads as a miss even before the sweep removes it.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with a fresh ttl, replacing any previous entry.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Delete removes key.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// DeleteFunc removes every key matching predicate.
func (c *TTLCache[K, V]) DeleteFunc(predicate func(key K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if predicate(key) {
			delete(c.entries, key)
		}
	}
}

// Len counts entries, expired ones included.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Close stops the sweep goroutine. Safe to call more than once.
func (c *TTLCache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

func (c *TTLCache[K, V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
