// Package cache provides TTL caching with in-memory and Redis backends.
//
// A Store holds Entry values with an absolute expiry. An entry is usable only
// while now is before its ExpiresAt; expired entries are treated as absent and
// removed lazily on the next Get. There is no background sweep and no
// capacity bound.
//
// # Basic Usage
//
//	store := cache.NewMemoryStore[string]("example", nil)
//
//	entry := cache.NewEntry("value", time.Now(), time.Hour)
//	if err := store.Set(ctx, "key", entry); err != nil {
//		return err
//	}
//
//	got, err := store.Get(ctx, "key")
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Absent or expired
//	}
//
// # Shared Backend
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := cache.NewRedisStore[location.ResolvedLocation](redisClient, "location", nil)
//
// Redis keys have the form datecontext:<cache>:<key>.
//
// # Metrics
//
//   - datecontext_cache_hits_total{cache,layer} - Cache hits
//   - datecontext_cache_misses_total{cache} - Cache misses
//   - datecontext_cache_evictions_total{cache} - Expired entries evicted on access
//   - datecontext_cache_errors_total{operation} - Backend errors
package cache
