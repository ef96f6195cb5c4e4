// Package store persists geocode resolutions keyed by cache.Key.
//
// Every implementation returns sentinel.ErrNotFound for unknown keys. Entries
// are never evicted here; expiry is an operational concern (Redis TTL, a
// periodic DELETE on created_at).
package store

import (
	"context"
	"sync"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/platform/sentinel"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/requestcontext"
)

// InMemoryCache keeps entries in a map guarded by a RWMutex.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		entries: make(map[string]models.CacheEntry),
	}
}

// FindByKey returns a copy of the entry stored under key.
func (c *InMemoryCache) FindByKey(_ context.Context, key string) (*models.CacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneEntry(entry), nil
}

// RecordHit increments the hit count and refreshes LastHitAt.
func (c *InMemoryCache) RecordHit(ctx context.Context, key string) error {
	now := requestcontext.Now(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	entry.HitCount++
	entry.LastHitAt = &now
	c.entries[key] = entry
	return nil
}

// Upsert creates the entry or replaces its result and source. HitCount,
// CreatedAt and LastHitAt of an existing entry are kept.
func (c *InMemoryCache) Upsert(ctx context.Context, entry *models.CacheEntry) error {
	if entry == nil {
		return nil
	}
	now := requestcontext.Now(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := *entry
	if existing, ok := c.entries[entry.Key]; ok {
		stored.HitCount = existing.HitCount
		stored.CreatedAt = existing.CreatedAt
		stored.LastHitAt = existing.LastHitAt
	} else {
		stored.HitCount = 0
		stored.CreatedAt = now
		stored.LastHitAt = nil
	}
	c.entries[entry.Key] = stored
	return nil
}

// Len returns the number of stored entries.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cloneEntry(e models.CacheEntry) *models.CacheEntry {
	if e.LastHitAt != nil {
		t := *e.LastHitAt
		e.LastHitAt = &t
	}
	return &e
}
