package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(ttl time.Duration) (*TTLCache[string, int], *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	c := NewTTLCache[string, int]("test", ttl, 0)
	c.now = clock.Now
	return c, clock
}

func TestTTLCache_SetGet(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	defer c.Stop()

	c.Set("a", 1)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	clock.Advance(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry must expire exactly at its TTL")
}

func TestTTLCache_SetRefreshesTTL(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	defer c.Stop()

	c.Set("a", 1)
	clock.Advance(45 * time.Second)
	c.Set("a", 2)
	clock.Advance(45 * time.Second)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTLCache_CleanupAndStats(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	defer c.Stop()

	c.Set("old", 1)
	clock.Advance(2 * time.Minute)
	c.Set("new", 2)

	stats := c.GetStats()
	assert.Equal(t, Stats{TotalEntries: 2, ActiveEntries: 1, ExpiredEntries: 1, TTL: "1m0s"}, stats)

	c.performCleanup()
	assert.Equal(t, 1, c.Size())
}

func TestTTLCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	defer c.Stop()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	assert.Equal(t, 1, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestTTLCache_BackgroundSweep(t *testing.T) {
	c := NewTTLCache[string, int]("sweep", 10*time.Millisecond, 5*time.Millisecond)
	defer c.Stop()

	c.Set("a", 1)
	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTTLCache_StopIsIdempotent(t *testing.T) {
	c := NewTTLCache[string, int]("stop", time.Minute, time.Minute)
	c.Stop()
	assert.NotPanics(t, c.Stop)
}
