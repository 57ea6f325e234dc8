package cache

import (
	"log/slog"
	"sync"
	"time"
)

// entry is a cached value with its expiration time
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a thread-safe map whose entries expire after a fixed TTL.
// Expired entries are invisible to reads and swept by a background goroutine
// until Stop is called.
type TTLCache[K comparable, V any] struct {
	name  string
	items map[K]entry[V]
	mutex sync.RWMutex
	ttl   time.Duration
	now   func() time.Time

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

// NewTTLCache creates a cache with the given TTL and sweep interval
func NewTTLCache[K comparable, V any](name string, ttl, cleanupInterval time.Duration) *TTLCache[K, V] {
	c := &TTLCache[K, V]{
		name:        name,
		items:       make(map[K]entry[V]),
		ttl:         ttl,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	if cleanupInterval > 0 {
		c.cleanupTicker = time.NewTicker(cleanupInterval)
		go c.cleanupExpiredEntries()
	}

	slog.Info("TTL cache initialized",
		"cache", name,
		"ttl", ttl.String(),
		"cleanup_interval", cleanupInterval.String())

	return c
}

// Set stores value under key for one TTL
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Get returns the value under key when it has not expired
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, ok := c.items[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Delete removes key
func (c *TTLCache[K, V]) Delete(key K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
}

// Size returns the number of stored entries, expired ones included
func (c *TTLCache[K, V]) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// Clear removes every entry
func (c *TTLCache[K, V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := len(c.items)
	c.items = make(map[K]entry[V])
	slog.Info("Cache cleared", "cache", c.name, "removed_items", removed)
}

// Stop ends the background sweep. It is safe to call more than once.
func (c *TTLCache[K, V]) Stop() {
	c.stopOnce.Do(func() {
		if c.cleanupTicker != nil {
			c.cleanupTicker.Stop()
		}
		close(c.stopCleanup)
		slog.Debug("TTL cache stopped", "cache", c.name)
	})
}

func (c *TTLCache[K, V]) cleanupExpiredEntries() {
	for {
		select {
		case <-c.cleanupTicker.C:
			c.performCleanup()
		case <-c.stopCleanup:
			return
		}
	}
}

// performCleanup removes expired entries
func (c *TTLCache[K, V]) performCleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	expired := 0
	for key, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, key)
			expired++
		}
	}

	if expired > 0 {
		slog.Debug("Cache cleanup completed",
			"cache", c.name,
			"expired_entries", expired,
			"remaining_entries", len(c.items))
	}
}

// Stats summarizes the cache for status endpoints
type Stats struct {
	TotalEntries   int    `json:"total_entries"`
	ActiveEntries  int    `json:"active_entries"`
	ExpiredEntries int    `json:"expired_entries"`
	TTL            string `json:"ttl_duration"`
}

// GetStats returns cache statistics
func (c *TTLCache[K, V]) GetStats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := c.now()
	stats := Stats{TotalEntries: len(c.items), TTL: c.ttl.String()}
	for _, e := range c.items {
		if now.Before(e.expiresAt) {
			stats.ActiveEntries++
		} else {
			stats.ExpiredEntries++
		}
	}
	return stats
}
