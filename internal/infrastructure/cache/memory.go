package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/notwins/backend/internal/domain"
)

// DefaultMaxEntries bounds the memory cache when no size is configured.
const DefaultMaxEntries = 10000

// cacheItem represents a single item in the cache with expiration
type cacheItem struct {
	value      []byte
	expiration time.Time
}

func (i cacheItem) expired(now time.Time) bool {
	return now.After(i.expiration)
}

// MemoryCache is a size-bounded in-memory cache with TTL support.
// Least recently used entries are evicted once maxEntries is reached.
type MemoryCache struct {
	entries *lru.Cache[string, cacheItem]
	// writeMu orders Set against expiry removal so a fresh value is never
	// dropped in place of the stale one it replaced.
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(maxEntries int, cleanupInterval time.Duration) (*MemoryCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}

	entries, err := lru.New[string, cacheItem](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}

	cache := &MemoryCache{
		entries: entries,
		done:    make(chan struct{}),
	}

	go cache.cleanupExpired(cleanupInterval)

	return cache, nil
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	item, ok := c.entries.Get(key)
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	if now := time.Now(); item.expired(now) {
		c.removeIfExpired(key, now)
		return nil, domain.ErrCacheMiss
	}

	// callers own the returned slice
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

// Set stores a value in the cache with TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	c.writeMu.Lock()
	c.entries.Add(key, cacheItem{
		value:      stored,
		expiration: time.Now().Add(ttl),
	})
	c.writeMu.Unlock()
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.entries.Remove(key)
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	item, ok := c.entries.Peek(key)
	if !ok {
		return false, nil
	}
	return !item.expired(time.Now()), nil
}

// Size returns the current number of items in the cache, expired ones included
func (c *MemoryCache) Size() int {
	return c.entries.Len()
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.entries.Purge()
}

// Close stops the cleanup goroutine.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *MemoryCache) removeExpired() {
	now := time.Now()
	for _, key := range c.entries.Keys() {
		c.removeIfExpired(key, now)
	}
}

// removeIfExpired drops key only while it still holds an entry expired at now.
func (c *MemoryCache) removeIfExpired(key string, now time.Time) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	item, ok := c.entries.Peek(key)
	if !ok || !item.expired(now) {
		return false
	}
	c.entries.Remove(key)
	return true
}
