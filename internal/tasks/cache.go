package tasks

import (
	"sync"
	"time"

	"github.com/desertthunder/trx/internal/services"
)

const defaultSnapshotTTL = 10 * time.Minute

type snapshotEntry struct {
	snapshot  *services.PlatformPlaylist
	expiresAt time.Time
}

// SnapshotCache holds recently fetched external playlist snapshots.
//
// Entries expire after a TTL but are retained past it so that a caller facing
// platform rate limiting can fall back to stale data via GetStale.
type SnapshotCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]snapshotEntry
	now     func() time.Time
}

// NewSnapshotCache creates a cache with the given TTL. A non-positive ttl
// selects the 10 minute default.
func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &SnapshotCache{
		ttl:     ttl,
		entries: make(map[string]snapshotEntry),
		now:     time.Now,
	}
}

// Get returns a fresh snapshot, or nil when absent or expired.
func (c *SnapshotCache) Get(externalID string) *services.PlatformPlaylist {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[externalID]
	if !ok || c.now().After(entry.expiresAt) {
		return nil
	}
	return entry.snapshot
}

// GetStale returns a snapshot regardless of expiry, or nil when absent.
func (c *SnapshotCache) GetStale(externalID string) *services.PlatformPlaylist {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[externalID]
	if !ok {
		return nil
	}
	return entry.snapshot
}

// Put stores a snapshot with a fresh expiry.
func (c *SnapshotCache) Put(externalID string, snapshot *services.PlatformPlaylist) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[externalID] = snapshotEntry{snapshot: snapshot, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops a snapshot after a mutation makes it unreliable.
func (c *SnapshotCache) Invalidate(externalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, externalID)
}
