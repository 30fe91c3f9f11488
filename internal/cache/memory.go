package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"messaging-service/internal/observability"
)

type memoryEntry struct {
	raw       []byte
	expiresAt time.Time
}

// MemoryCache is an in-process cache used when redis is not configured
// and in tests. Values round-trip through JSON so both implementations
// share serialization behavior.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		observability.IncCacheMiss()
		return false, nil
	}
	if err := json.Unmarshal(entry.raw, dest); err != nil {
		return false, err
	}
	observability.IncCacheHit()
	return true, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{raw: raw, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Evict(_ context.Context, key string) error {
	observability.IncCacheEviction()
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}
