// Package cache provides byte-oriented key/value caches with TTLs.
//
// Index clients store raw API responses through the [Cache] interface so the
// storage backend can be chosen at startup: [FileCache] for the CLI,
// [RedisCache] when several processes share metadata, [MemoryCache] for the
// API server, and [NullCache] when caching is disabled.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Cache stores opaque values by key. A zero TTL means no expiration.
//
// Get reports a miss as (nil, false, nil); an error means the backend itself
// failed. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// DefaultDir returns the per-user cache directory (~/.cache/stacklock).
func DefaultDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "stacklock"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "stacklock"), nil
}

// Scoped prefixes every key of inner with prefix, giving callers separate
// namespaces on one backend.
func Scoped(inner Cache, prefix string) Cache {
	return &scoped{inner: inner, prefix: prefix}
}

type scoped struct {
	inner  Cache
	prefix string
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, s.prefix+key, data, ttl)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

func (s *scoped) Close() error { return s.inner.Close() }
