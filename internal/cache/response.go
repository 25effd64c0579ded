package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/clock"
)

// DefaultTTL is the freshness window for completion reads.
const DefaultTTL = 5 * time.Minute

// Entry is one memoized response.
type Entry struct {
	Key      string
	Value    any
	StoredAt time.Time
}

// ResponseCache is a per-namespace TTL cache keyed by
// "{namespace}_{entityID}_{suffix}".
//
// Thread-safety: All methods are safe for concurrent use.
type ResponseCache struct {
	mu        sync.Mutex
	namespace string
	ttl       time.Duration
	clock     clock.Clock
	entries   map[string]Entry
	stats     Stats
}

// NewResponseCache creates an empty cache. A non-positive ttl selects
// DefaultTTL.
func NewResponseCache(namespace string, ttl time.Duration, c clock.Clock) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if c == nil {
		c = clock.Real{}
	}
	return &ResponseCache{
		namespace: namespace,
		ttl:       ttl,
		clock:     c,
		entries:   make(map[string]Entry),
	}
}

// Key builds the cache key for an entity and query suffix,
// e.g. Key(1, "status_2024-01-15") = "completion_1_status_2024-01-15".
func (c *ResponseCache) Key(entityID int64, suffix string) string {
	return fmt.Sprintf("%s_%d_%s", c.namespace, entityID, suffix)
}

// Get returns the value if present and fresh. A stale entry is evicted and
// reported as a miss.
func (c *ResponseCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if c.clock.Now().Sub(e.StoredAt) >= c.ttl {
		delete(c.entries, key)
		c.stats.Expirations++
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return e.Value, true
}

// Set stores value, overwriting any previous entry for key.
func (c *ResponseCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Key: key, Value: value, StoredAt: c.clock.Now()}
}

// InvalidateForEntity removes every entry referencing entityID and returns
// how many were removed.
func (c *ResponseCache) InvalidateForEntity(entityID int64) int {
	prefix := fmt.Sprintf("%s_%d_", c.namespace, entityID)

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	c.stats.Invalidations += n
	return n
}

// Peek reports whether key is stored, ignoring freshness and stats.
func (c *ResponseCache) Peek(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Len returns the number of stored entries, fresh or not.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Stats returns a copy of the event counters.
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
