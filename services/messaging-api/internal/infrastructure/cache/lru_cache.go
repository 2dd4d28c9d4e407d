package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
)

type lruEntry struct {
	principal domain.Principal
	expiresAt time.Time
}

// LRUCache keeps principals in process with a bounded size and per-entry expiry.
type LRUCache struct {
	cache *lru.Cache
	now   func() time.Time
}

// NewLRUCache creates a cache holding at most size entries.
func NewLRUCache(size int) (*LRUCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUCache{cache: cache, now: time.Now}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) (domain.Principal, bool) {
	value, ok := c.cache.Get(key)
	if !ok {
		return domain.Principal{}, false
	}
	entry, ok := value.(lruEntry)
	if !ok || !c.now().Before(entry.expiresAt) {
		c.cache.Remove(key)
		return domain.Principal{}, false
	}
	return entry.principal, true
}

func (c *LRUCache) Set(_ context.Context, key string, principal domain.Principal, ttl time.Duration) {
	c.cache.Add(key, lruEntry{principal: principal, expiresAt: c.now().Add(ttl)})
}

// Len reports the number of cached entries, including expired ones not yet evicted.
func (c *LRUCache) Len() int {
	return c.cache.Len()
}
