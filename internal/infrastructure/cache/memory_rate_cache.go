// Package cache provides rate quote caches behind the application's
// RateCache port. The in-memory cache suits single-instance deploys;
// the Redis cache shares quotes across instances.
package cache

import (
	"context"
	"sync"
	"time"

	appshipping "github.com/retailops/fulfillment/internal/application/shipping"
	"github.com/retailops/fulfillment/internal/domain/shipping"
)

// MemoryRateCache is an in-process rate cache with lazy expiry.
type MemoryRateCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	opts      []shipping.RateOption
	expiresAt time.Time
}

// NewMemoryRateCache creates a new MemoryRateCache
func NewMemoryRateCache() *MemoryRateCache {
	return &MemoryRateCache{entries: make(map[string]memoryEntry)}
}

// Get returns a cached quote if present and unexpired
func (c *MemoryRateCache) Get(_ context.Context, key string) ([]shipping.RateOption, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.opts, true
}

// Set stores a quote with the given TTL
func (c *MemoryRateCache) Set(_ context.Context, key string, opts []shipping.RateOption, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{opts: opts, expiresAt: time.Now().Add(ttl)}
}

var _ appshipping.RateCache = (*MemoryRateCache)(nil)
