package weather

import (
	"sync"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

// cacheEntry represents a cached weather summary.
type cacheEntry struct {
	expiry  time.Time
	summary model.WeatherSummary
}

// summaryCache provides thread-safe caching for weather summaries.
type summaryCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newSummaryCache creates a new cache with the specified TTL.
func newSummaryCache(ttl time.Duration) *summaryCache {
	if ttl == 0 {
		ttl = 30 * time.Minute
	}

	cache := &summaryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	// Start cleanup goroutine
	go cache.cleanup()

	return cache
}

// get retrieves a summary from the cache if it exists and hasn't expired.
func (c *summaryCache) get(key string) (model.WeatherSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return model.WeatherSummary{}, false
	}

	if time.Now().After(entry.expiry) {
		return model.WeatherSummary{}, false
	}

	return entry.summary, true
}

// set stores a summary in the cache.
func (c *summaryCache) set(key string, summary model.WeatherSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		summary: summary,
		expiry:  time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *summaryCache) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.evictExpired(time.Now())
		}
	}
}

func (c *summaryCache) evictExpired(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if now.After(entry.expiry) {
			delete(c.entries, key)
		}
	}
}

// size returns the number of entries in the cache.
func (c *summaryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// close stops the cleanup goroutine.
func (c *summaryCache) close() {
	close(c.stopCh)
}
