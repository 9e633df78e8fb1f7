package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory Cache fake used by executor pipeline tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	result  Result
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Lookup(_ context.Context, fingerprint string) (*Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fingerprint]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expires) {
		delete(c.entries, fingerprint)
		return nil, false, nil
	}
	result := entry.result
	return &result, true, nil
}

func (c *MemoryCache) Store(_ context.Context, fingerprint string, result Result, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = memoryEntry{result: result, expires: time.Now().Add(ttl)}
	return nil
}
