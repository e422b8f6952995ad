// Package memcache is an in-process export.IdempotencyCache used by
// tests and the single-node CLI path, where a real Redis is overkill.
package memcache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	expiresAt time.Time
}

// Cache is a TTL-bounded set-if-absent store.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
}

func New() *Cache {
	return &Cache{entries: map[string]entry{}}
}

func (c *Cache) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if e, ok := c.entries[key]; ok && e.expiresAt.After(now) {
		return false, nil
	}
	c.entries[key] = entry{expiresAt: now.Add(ttl)}
	return true, nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}
