package storage

import (
	"sync"
	"time"

	"realestate-market/models"
	"realestate-market/utils"
)

// Entry is one cached value. IsStale is only ever flipped by Get.
type Entry struct {
	Data      any
	Timestamp time.Time
	Source    string
	IsStale   bool
}

// MarketDataCache is an in-memory key/value store with a single TTL.
// Entries past the TTL are not evicted; they are flagged stale on the next
// Get and still returned. It is safe for concurrent use.
type MarketDataCache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
	now     func() time.Time
	log     *utils.Logger

	hits      uint64
	misses    uint64
	staleHits uint64
}

// Option configures a MarketDataCache.
type Option func(*MarketDataCache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *MarketDataCache) { c.now = now }
}

// NewMarketDataCache creates an empty cache with the given TTL.
func NewMarketDataCache(ttl time.Duration, log *utils.Logger, opts ...Option) *MarketDataCache {
	if log == nil {
		log = utils.NewSilentLogger()
	}
	c := &MarketDataCache{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log.Info("[cache] initialised with TTL=%v", ttl)
	return c
}

// TTL returns the configured time-to-live.
func (c *MarketDataCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the value stored under key. The bool is false on a miss.
func (c *MarketDataCache) Get(key string) (any, models.CacheInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		c.log.Debug("[cache] MISS %s", key)
		return nil, models.CacheInfo{}, false
	}

	age := c.now().Sub(e.Timestamp)
	if age > c.ttl {
		if !e.IsStale {
			c.log.Debug("[cache] EXPIRED %s (age %.1fs)", key, age.Seconds())
		}
		e.IsStale = true
	}
	if e.IsStale {
		c.staleHits++
	} else {
		c.hits++
		c.log.Debug("[cache] HIT %s (age %.1fs)", key, age.Seconds())
	}

	return e.Data, models.CacheInfo{
		Timestamp:  e.Timestamp,
		Source:     e.Source,
		IsStale:    e.IsStale,
		AgeSeconds: age.Seconds(),
	}, true
}

// Set stores value under key, overwriting any previous entry.
func (c *MarketDataCache) Set(key string, value any, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &Entry{
		Data:      value,
		Timestamp: c.now(),
		Source:    source,
	}
	c.log.Info("[cache] SET %s (source: %s)", key, source)
}

// Invalidate removes key and reports whether it was present.
func (c *MarketDataCache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	c.log.Info("[cache] INVALIDATED %s", key)
	return true
}

// Clear removes every entry and returns how many were dropped.
func (c *MarketDataCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]*Entry)
	c.log.Info("[cache] CLEARED (%d entries removed)", n)
	return n
}

// Stats returns a snapshot of all entries and the access counters.
func (c *MarketDataCache) Stats() models.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stats := models.CacheStats{
		TotalEntries: len(c.entries),
		TTLMinutes:   c.ttl.Minutes(),
		Hits:         c.hits,
		Misses:       c.misses,
		StaleHits:    c.staleHits,
		Entries:      make(map[string]models.CacheEntryStats, len(c.entries)),
	}
	for key, e := range c.entries {
		age := now.Sub(e.Timestamp)
		stats.Entries[key] = models.CacheEntryStats{
			Timestamp:  e.Timestamp,
			Source:     e.Source,
			IsStale:    e.IsStale,
			IsExpired:  age > c.ttl,
			AgeSeconds: age.Seconds(),
			AgeMinutes: age.Minutes(),
		}
	}
	return stats
}

// GetAs is Get with a type assertion. A stored value of another type is
// reported as a miss.
func GetAs[T any](s Store, key string) (T, models.CacheInfo, bool) {
	var zero T
	v, info, ok := s.Get(key)
	if !ok {
		return zero, info, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, info, false
	}
	return typed, info, true
}
