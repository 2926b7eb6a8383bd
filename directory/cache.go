package directory

import (
	"sync"
	"time"
)

// summaryCache is a process-scoped TTL cache for user summaries.
type summaryCache struct {
	mu      sync.RWMutex
	entries map[uint]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	summary   *UserSummary
	expiresAt time.Time
}

func newSummaryCache(ttl time.Duration) *summaryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &summaryCache{entries: map[uint]cacheEntry{}, ttl: ttl}
}

func (c *summaryCache) get(id uint) (*UserSummary, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.evict(id)
		return nil, false
	}
	return entry.summary, true
}

func (c *summaryCache) put(id uint, s *UserSummary) {
	c.mu.Lock()
	c.entries[id] = cacheEntry{summary: s, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *summaryCache) evict(id uint) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

func (c *summaryCache) evictAll() {
	c.mu.Lock()
	c.entries = map[uint]cacheEntry{}
	c.mu.Unlock()
}
