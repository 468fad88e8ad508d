// Package cache keeps rendered session snapshots for the HTTP API.
// Snapshots are built on a session's owner loop, so repeated reads of
// the same session within the TTL are served from here instead.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/gubancs/leafmap/pkg/leaflet"
)

// Cache is a TTL cache of session snapshots keyed by session id.
type Cache struct {
	store *gocache.Cache
}

// New creates a cache whose entries live for ttl. Expired entries are
// purged every cleanupInterval.
func New(ttl, cleanupInterval time.Duration) *Cache {
	return &Cache{store: gocache.New(ttl, cleanupInterval)}
}

// Snapshot returns the cached snapshot of session id.
func (c *Cache) Snapshot(id string) (leaflet.Snapshot, bool) {
	v, ok := c.store.Get(id)
	if !ok {
		return leaflet.Snapshot{}, false
	}
	snap, ok := v.(leaflet.Snapshot)
	return snap, ok
}

// Put stores the snapshot of session id.
func (c *Cache) Put(id string, snap leaflet.Snapshot) {
	c.store.SetDefault(id, snap)
}

// Invalidate drops the snapshot of session id. Called whenever the
// session's tree may have changed.
func (c *Cache) Invalidate(id string) {
	c.store.Delete(id)
}

// OnEvicted registers fn to observe expired or invalidated entries.
func (c *Cache) OnEvicted(fn func(id string)) {
	c.store.OnEvicted(func(key string, _ any) { fn(key) })
}

// Clear removes all items from the cache.
func (c *Cache) Clear() {
	c.store.Flush()
}

// Stats returns cache statistics.
type Stats struct {
	ItemCount int `json:"item_count"`
}

// GetStats returns current cache statistics.
func (c *Cache) GetStats() Stats {
	return Stats{ItemCount: c.store.ItemCount()}
}
