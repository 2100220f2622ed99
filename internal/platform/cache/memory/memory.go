// Package memory provides an in-memory TTL cache with windowed counters.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/campusops/roomclerk/internal/platform/cache"
)

type item struct {
	value     []byte
	expiresAt time.Time
}

type counterItem struct {
	value     int64
	expiresAt time.Time
}

// Cache is an in-memory cache with TTL support. Values and counters
// live in separate keyspaces.
type Cache struct {
	mu         sync.RWMutex
	items      map[string]*item
	counters   map[string]*counterItem
	defaultTTL time.Duration
	stopClean  chan struct{}
	closeOnce  sync.Once
}

// New creates an in-memory cache. cleanupInterval controls how often
// expired entries are reaped; zero disables the reaper, in which case
// expired entries linger until read.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	c := &Cache{
		items:      make(map[string]*item),
		counters:   make(map[string]*counterItem),
		defaultTTL: defaultTTL,
		stopClean:  make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.cleanupLoop(cleanupInterval)
	}
	return c
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stopClean:
			return
		}
	}
}

func (c *Cache) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, v := range c.items {
		if now.After(v.expiresAt) {
			delete(c.items, k)
		}
	}
	for k, v := range c.counters {
		if now.After(v.expiresAt) {
			delete(c.counters, k)
		}
	}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	if time.Now().After(it.expiresAt) {
		return nil, cache.ErrExpired
	}
	out := make([]byte, len(it.value))
	copy(out, it.value)
	return out, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &item{value: stored, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return !time.Now().After(it.expiresAt), nil
}

// Increment adds delta to a windowed counter. An expired or absent
// counter restarts the window at the full TTL.
func (c *Cache) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, time.Time, error) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	counter, ok := c.counters[key]
	if !ok || time.Now().After(counter.expiresAt) {
		expiresAt := time.Now().Add(ttl)
		c.counters[key] = &counterItem{value: delta, expiresAt: expiresAt}
		return delta, expiresAt, nil
	}
	counter.value += delta
	return counter.value, counter.expiresAt, nil
}

func (c *Cache) GetCount(ctx context.Context, key string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counter, ok := c.counters[key]
	if !ok || time.Now().After(counter.expiresAt) {
		return 0, nil
	}
	return counter.value, nil
}

func (c *Cache) Reset(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counters, key)
	return nil
}

// Close stops the reaper goroutine. Safe to call more than once.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() { close(c.stopClean) })
	return nil
}

var _ cache.CacheWithCounter = (*Cache)(nil)
