package reporting

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// Cache stores rendered reports under a TTL. Implementations must never
// return an entry past its TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// cacheKey derives the cache key from the requester, the report type and a
// canonical hash of the filter set. Filters marshals with a fixed field
// order, so equal filters always hash equal.
func cacheKey(requesterAccountID string, typ ReportType, f Filters) string {
	raw, _ := json.Marshal(f)
	sum := sha256.Sum256(raw)
	return "report:" + requesterAccountID + ":" + string(typ) + ":" + hex.EncodeToString(sum[:])
}

type memoryCacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is the in-process cache backend. Expired entries are evicted
// lazily on the read that finds them; Sweep clears the rest.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
	clock   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memoryCacheEntry{}, clock: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.clock().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.data, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryCacheEntry{data: data, expiresAt: c.clock().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Sweep drops every expired entry and reports how many were removed.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries. Intended for tests.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
