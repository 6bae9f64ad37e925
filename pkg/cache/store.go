package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates the requested key was not found or has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is a keyed TTL cache. Implementations must be safe for concurrent use.
//
// Get returns ErrCacheMiss for absent or expired keys; expired entries are
// removed on that access. There is no background sweep and no capacity bound.
type Store[T any] interface {
	Get(ctx context.Context, key string) (*Entry[T], error)
	Set(ctx context.Context, key string, entry *Entry[T]) error
	Delete(ctx context.Context, key string) error
}

var (
	_ Store[string] = (*MemoryStore[string])(nil)
	_ Store[string] = (*RedisStore[string])(nil)
)
