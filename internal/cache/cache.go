// Package cache is a process-local, size- and count-bounded LRU cache with
// per-entry expiry.
package cache

import (
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// Config bounds a Cache. Zero limits mean unbounded.
type Config struct {
	MaxEntries int
	MaxBytes   int64
	TTL        time.Duration
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries   int
	Bytes     int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type entry[V any] struct {
	value     V
	size      int64
	expiresAt time.Time
}

// Cache is safe for concurrent use. Eviction runs synchronously inside Set.
type Cache[K comparable, V any] struct {
	cfg  Config
	size func(V) int64
	now  func() time.Time

	mu  sync.Mutex
	lru *lru.Cache
	// index mirrors lru's contents for iteration; lru owns recency.
	index map[K]*entry[V]
	bytes int64
	stats Stats
}

// New creates a Cache. size reports the byte weight of a value; nil counts
// every value as one byte.
func New[K comparable, V any](cfg Config, size func(V) int64) *Cache[K, V] {
	if size == nil {
		size = func(V) int64 { return 1 }
	}
	c := &Cache[K, V]{cfg: cfg, size: size, now: time.Now, index: make(map[K]*entry[V])}
	// Limits are enforced in Set so byte accounting sees every removal.
	c.lru = lru.New(0)
	c.lru.OnEvicted = func(k lru.Key, v any) {
		c.bytes -= v.(*entry[V]).size
		delete(c.index, k.(K))
	}
	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	raw, ok := c.lru.Get(key)
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	e := raw.(*entry[V])
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		c.stats.Misses++
		return zero, false
	}
	c.stats.Hits++
	return e.value, true
}

// Set stores value under key, evicting least recently used entries until
// the count and byte ceilings hold. A value larger than MaxBytes is not stored.
func (c *Cache[K, V]) Set(key K, value V) {
	c.set(key, value, time.Time{})
}

// SetUntil is Set with the entry's lifetime capped at expiresAt. A zero
// expiresAt applies only the configured TTL.
func (c *Cache[K, V]) SetUntil(key K, value V, expiresAt time.Time) {
	c.set(key, value, expiresAt)
}

func (c *Cache[K, V]) set(key K, value V, until time.Time) {
	sz := c.size(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.MaxBytes > 0 && sz > c.cfg.MaxBytes {
		c.lru.Remove(key)
		return
	}

	e := &entry[V]{value: value, size: sz}
	if c.cfg.TTL > 0 {
		e.expiresAt = c.now().Add(c.cfg.TTL)
	}
	if !until.IsZero() && (e.expiresAt.IsZero() || until.Before(e.expiresAt)) {
		e.expiresAt = until
	}
	c.lru.Remove(key)
	c.lru.Add(key, e)
	c.index[key] = e
	c.bytes += sz

	for c.lru.Len() > 1 && c.overLimit() {
		c.lru.RemoveOldest()
		c.stats.Evictions++
	}
}

func (c *Cache[K, V]) overLimit() bool {
	if c.cfg.MaxEntries > 0 && c.lru.Len() > c.cfg.MaxEntries {
		return true
	}
	return c.cfg.MaxBytes > 0 && c.bytes > c.cfg.MaxBytes
}

// Delete removes key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// PurgeExpired drops every expired entry and returns how many were removed.
func (c *Cache[K, V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for k, e := range c.index {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			c.lru.Remove(k)
			n++
		}
	}
	return n
}

// Stats returns a snapshot of the counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.lru.Len()
	s.Bytes = c.bytes
	return s
}
