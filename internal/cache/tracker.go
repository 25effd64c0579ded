package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/clock"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/store"
)

// TrackerKeyPrefix prefixes every persisted tracker snapshot key.
const TrackerKeyPrefix = "tracker_cache_"

// DefaultTrackerCapacity bounds how many tracker snapshots are kept.
const DefaultTrackerCapacity = 10

// TrackerEntry is one cached tracker snapshot.
type TrackerEntry struct {
	TrackerID int64
	Value     json.RawMessage
	StoredAt  time.Time
}

type trackerWire struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TrackerOptions configures a TrackerCache.
type TrackerOptions struct {
	Storage  store.Storage
	TTL      time.Duration
	Capacity int
	Clock    clock.Clock
	Logger   *slog.Logger
}

// TrackerCache caches tracker snapshots in memory and durable storage.
//
// Thread-safety: All methods are safe for concurrent use. Storage calls are
// made with the cache lock held so memory and storage change together.
type TrackerCache struct {
	mu       sync.Mutex
	storage  store.Storage
	ttl      time.Duration
	capacity int
	clock    clock.Clock
	logger   *slog.Logger
	entries  map[int64]TrackerEntry
	stats    Stats
}

// NewTrackerCache creates an empty cache. Call Load to pick up entries
// persisted by a previous process.
func NewTrackerCache(opts TrackerOptions) *TrackerCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultTrackerCapacity
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TrackerCache{
		storage:  opts.Storage,
		ttl:      opts.TTL,
		capacity: opts.Capacity,
		clock:    opts.Clock,
		logger:   opts.Logger,
		entries:  make(map[int64]TrackerEntry),
	}
}

// TrackerKey returns the storage key for a tracker.
func TrackerKey(trackerID int64) string {
	return TrackerKeyPrefix + strconv.FormatInt(trackerID, 10)
}

// Load reads persisted snapshots into memory, dropping expired or
// malformed ones. Returns the number of entries loaded.
func (c *TrackerCache) Load(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.storage == nil {
		return 0
	}
	keys, err := c.storage.Keys(ctx, TrackerKeyPrefix)
	if err != nil {
		c.logger.Warn("tracker cache storage unavailable, using memory only", "error", err)
		return 0
	}

	now := c.clock.Now()
	for _, key := range keys {
		id, err := strconv.ParseInt(strings.TrimPrefix(key, TrackerKeyPrefix), 10, 64)
		if err != nil {
			continue
		}
		raw, err := c.storage.Get(ctx, key)
		if err != nil {
			c.logger.Warn("tracker cache read failed", "key", key, "error", err)
			continue
		}
		var w trackerWire
		if err := json.Unmarshal(raw, &w); err != nil {
			c.logger.Warn("discarding malformed tracker cache entry", "key", key, "error", err)
			c.deleteStored(ctx, key)
			continue
		}
		e := TrackerEntry{TrackerID: id, Value: w.Data, StoredAt: time.UnixMilli(w.Timestamp)}
		if now.Sub(e.StoredAt) >= c.ttl {
			c.deleteStored(ctx, key)
			continue
		}
		c.entries[id] = e
	}
	c.evictLocked(ctx)
	return len(c.entries)
}

// Get returns a fresh snapshot for trackerID.
func (c *TrackerCache) Get(ctx context.Context, trackerID int64) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[trackerID]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if c.clock.Now().Sub(e.StoredAt) >= c.ttl {
		delete(c.entries, trackerID)
		c.deleteStored(ctx, TrackerKey(trackerID))
		c.stats.Expirations++
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return e.Value, true
}

// Set stores a snapshot and evicts the oldest entries beyond capacity.
func (c *TrackerCache) Set(ctx context.Context, trackerID int64, value json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := TrackerEntry{TrackerID: trackerID, Value: value, StoredAt: c.clock.Now()}
	c.entries[trackerID] = e

	if c.storage != nil {
		raw, err := json.Marshal(trackerWire{Data: value, Timestamp: e.StoredAt.UnixMilli()})
		if err == nil {
			err = c.storage.Set(ctx, TrackerKey(trackerID), raw)
		}
		if err != nil {
			c.logger.Warn("tracker cache write failed, keeping memory copy", "tracker_id", trackerID, "error", err)
		}
	}
	c.evictLocked(ctx)
}

// Invalidate drops one tracker's snapshot.
func (c *TrackerCache) Invalidate(ctx context.Context, trackerID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[trackerID]; ok {
		c.stats.Invalidations++
	}
	delete(c.entries, trackerID)
	c.deleteStored(ctx, TrackerKey(trackerID))
}

// Clear drops every snapshot from memory and storage.
func (c *TrackerCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.entries {
		c.deleteStored(ctx, TrackerKey(id))
	}
	c.entries = make(map[int64]TrackerEntry)
}

// Len returns the number of snapshots held in memory.
func (c *TrackerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a copy of the event counters.
func (c *TrackerCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// evictLocked removes oldest-by-timestamp entries until within capacity.
// Caller must hold c.mu.
func (c *TrackerCache) evictLocked(ctx context.Context) {
	for len(c.entries) > c.capacity {
		var oldest TrackerEntry
		found := false
		for _, e := range c.entries {
			if !found || e.StoredAt.Before(oldest.StoredAt) ||
				(e.StoredAt.Equal(oldest.StoredAt) && e.TrackerID < oldest.TrackerID) {
				oldest = e
				found = true
			}
		}
		delete(c.entries, oldest.TrackerID)
		c.deleteStored(ctx, TrackerKey(oldest.TrackerID))
		c.stats.Evictions++
	}
}

// deleteStored removes key from storage, logging failures.
func (c *TrackerCache) deleteStored(ctx context.Context, key string) {
	if c.storage == nil {
		return
	}
	if err := c.storage.Delete(ctx, key); err != nil && !errors.Is(err, store.ErrNotFound) {
		c.logger.Warn("tracker cache delete failed", "key", key, "error", fmt.Errorf("delete: %w", err))
	}
}
