package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fastygo/greenbite/repository"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a process-local repository.Cache.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry), now: time.Now}
}

var _ repository.Cache = (*Cache)(nil)

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := cacheEntry{value: append([]byte(nil), value...)}
	if ttlSeconds > 0 {
		entry.expiresAt = c.now().Add(time.Duration(ttlSeconds) * time.Second)
	}
	c.entries[key] = entry
	return nil
}
