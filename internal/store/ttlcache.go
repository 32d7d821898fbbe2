package store

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/stonybrain/cityprotect-api/internal/incident"
)

// ReportCache is a concurrency-safe TTL cache for aggregate reports, keyed by
// the full set of request parameters that affect output. Entries expire
// lazily on read; a sweep removes expired entries whenever the store grows
// past maxEntries.
type ReportCache struct {
	mu sync.Mutex

	clock      clockwork.Clock
	ttl        time.Duration
	maxEntries int

	entries map[string]cacheEntry
}

type cacheEntry struct {
	payload  incident.Report
	storedAt time.Time
}

// NewReportCache creates a ReportCache. If maxEntries is <= 0 the sweep bound
// is unlimited.
func NewReportCache(clock clockwork.Clock, ttl time.Duration, maxEntries int) *ReportCache {
	return &ReportCache{
		clock:      clock,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]cacheEntry),
	}
}

// Get returns the cached report for key, treating entries older than the TTL
// as absent.
func (c *ReportCache) Get(key string) (incident.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return incident.Report{}, false
	}
	if c.clock.Since(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return incident.Report{}, false
	}
	return e.payload, true
}

// Set stores a report under key, replacing any previous entry. When the store
// exceeds its size bound, all expired entries are swept out.
func (c *ReportCache) Set(key string, payload incident.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		payload:  payload,
		storedAt: c.clock.Now(),
	}

	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.sweep()
	}
}

// Len reports the number of entries currently held, expired or not.
func (c *ReportCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ReportCache) sweep() {
	now := c.clock.Now()
	for k, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, k)
		}
	}
}
