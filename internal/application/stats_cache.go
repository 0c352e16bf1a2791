package application

import (
	"maps"
	"strings"
	"sync"
	"time"
)

// statsCache stores recently computed room statistics so repeated dashboard
// queries skip the aggregation while slots remain unchanged.
type statsCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]statsCacheEntry
}

type statsCacheEntry struct {
	stats     []RoomStats
	expiresAt time.Time
}

func newStatsCache(ttl time.Duration, maxEntries int, now func() time.Time) *statsCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &statsCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]statsCacheEntry),
	}
}

func (c *statsCache) Get(key string) ([]RoomStats, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneStats(entry.stats), true
}

func (c *statsCache) Store(key string, stats []RoomStats) {
	if c == nil {
		return
	}
	cloned := cloneStats(stats)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = statsCacheEntry{stats: cloned, expiresAt: expiry}
}

func (c *statsCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]statsCacheEntry)
	c.mu.Unlock()
}

func (c *statsCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *statsCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneStats(stats []RoomStats) []RoomStats {
	if len(stats) == 0 {
		return nil
	}
	out := make([]RoomStats, len(stats))
	for i, s := range stats {
		out[i] = s
		out[i].TypeDistribution = maps.Clone(s.TypeDistribution)
	}
	return out
}

func buildStatsCacheKey(query StatsQuery) string {
	var from, to string
	if query.From != nil {
		from = query.From.UTC().Format(time.DateOnly)
	}
	if query.To != nil {
		to = query.To.UTC().Format(time.DateOnly)
	}
	return strings.Join([]string{query.RoomID, from, to}, "|")
}
