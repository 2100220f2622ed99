// Package cache defines the TTL cache and counter ports used by the
// HTTP layer, with an in-memory implementation under memory/.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the key is not present.
	ErrNotFound = errors.New("cache: key not found")

	// ErrExpired indicates the key exists but its TTL has elapsed.
	ErrExpired = errors.New("cache: key expired")
)

// Cache is a byte-value cache with per-key TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Counter is a windowed counter, the primitive behind rate limiting.
// Increment returns the counter value after the delta and the time at
// which the window resets.
type Counter interface {
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, time.Time, error)
	GetCount(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// CacheWithCounter combines both capabilities with a lifecycle hook.
type CacheWithCounter interface {
	Cache
	Counter
	Close() error
}
