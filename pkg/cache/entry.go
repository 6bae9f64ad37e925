package cache

import (
	"time"
)

// Entry represents a cached value with an absolute expiry.
type Entry[T any] struct {
	// Value is the cached payload
	Value T `json:"value"`

	// ExpiresAt is when the entry stops being usable
	ExpiresAt time.Time `json:"expires_at"`

	// CachedAt is when we cached this value
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry creates an entry cached at now that expires after ttl.
func NewEntry[T any](value T, now time.Time, ttl time.Duration) *Entry[T] {
	return &Entry[T]{
		Value:     value,
		ExpiresAt: now.Add(ttl),
		CachedAt:  now,
	}
}

// IsExpired reports whether the entry is no longer usable at now.
// An entry is usable iff now is strictly before ExpiresAt.
func (e *Entry[T]) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TTL returns the time until expiration as seen from now.
// Returns 0 if already expired.
func (e *Entry[T]) TTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
