package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store shared across processes through Redis.
// Entries are JSON-encoded and carry a Redis TTL matching ExpiresAt.
type RedisStore[T any] struct {
	redis *redis.Client
	name  string
	now   func() time.Time
}

// NewRedisStore creates a Redis-backed store. name becomes part of every key
// and labels metrics; now defaults to time.Now when nil.
func NewRedisStore[T any](redisClient *redis.Client, name string, now func() time.Time) *RedisStore[T] {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore[T]{
		redis: redisClient,
		name:  name,
		now:   now,
	}
}

// Get retrieves an entry by key.
// Returns ErrCacheMiss if the key doesn't exist or the entry is expired.
func (s *RedisStore[T]) Get(ctx context.Context, key string) (*Entry[T], error) {
	data, err := s.redis.Get(ctx, namespacedKey(s.name, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.WithLabelValues(s.name).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	// Redis TTLs have second granularity, so check our own expiry too
	if entry.IsExpired(s.now()) {
		_ = s.Delete(ctx, key)
		CacheEvictions.WithLabelValues(s.name).Inc()
		CacheMisses.WithLabelValues(s.name).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(s.name, "redis").Inc()
	return &entry, nil
}

// Set stores an entry with a Redis TTL derived from ExpiresAt.
func (s *RedisStore[T]) Set(ctx context.Context, key string, entry *Entry[T]) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL(s.now())
	if ttl <= 0 {
		// Already expired, don't cache
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, namespacedKey(s.name, key), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes an entry.
func (s *RedisStore[T]) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, namespacedKey(s.name, key)).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
