package di

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mathops/application/ports"
	"mathops/domain/core/valueobjects"
)

// InMemoryCache provides a simple in-memory cache implementation
type InMemoryCache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

type cacheItem struct {
	value     interface{}
	expiresAt time.Time
}

// NewInMemoryCache creates a cache that sweeps expired entries every
// minute until Close is called.
func NewInMemoryCache() *InMemoryCache {
	cache := &InMemoryCache{
		items: make(map[string]cacheItem),
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	go cache.cleanupExpired(time.Minute)

	return cache
}

// Get retrieves a value from cache
func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists {
		return nil, false
	}

	if c.now().After(item.expiresAt) {
		return nil, false
	}

	return item.value, true
}

// Set stores a value in cache for ttl
func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}

	return nil
}

// Delete removes a value from cache
func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Close stops the cleanup goroutine.
func (c *InMemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanupExpired periodically removes expired items
func (c *InMemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// CachedCostSource remembers prices for ttl. Misses are not cached so a
// newly priced operation becomes available without waiting.
type CachedCostSource struct {
	source ports.CostSource
	cache  ports.Cache
	ttl    time.Duration
}

func NewCachedCostSource(source ports.CostSource, cache ports.Cache, ttl time.Duration) *CachedCostSource {
	return &CachedCostSource{source: source, cache: cache, ttl: ttl}
}

func (c *CachedCostSource) Cost(ctx context.Context, name string) (valueobjects.Credits, error) {
	key := fmt.Sprintf("cost:%s", name)
	if v, ok := c.cache.Get(ctx, key); ok {
		if cost, ok := v.(valueobjects.Credits); ok {
			return cost, nil
		}
	}

	cost, err := c.source.Cost(ctx, name)
	if err != nil {
		return valueobjects.Credits{}, err
	}
	_ = c.cache.Set(ctx, key, cost, c.ttl)
	return cost, nil
}
