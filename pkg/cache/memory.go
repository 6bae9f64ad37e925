package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a process-local Store backed by a map.
type MemoryStore[T any] struct {
	name    string
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]*Entry[T]
}

// NewMemoryStore creates an in-memory store. name labels metrics; now
// defaults to time.Now when nil.
func NewMemoryStore[T any](name string, now func() time.Time) *MemoryStore[T] {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore[T]{
		name:    name,
		now:     now,
		entries: make(map[string]*Entry[T]),
	}
}

// Get retrieves an entry by key.
// Returns ErrCacheMiss if the key doesn't exist or the entry is expired.
func (m *MemoryStore[T]) Get(_ context.Context, key string) (*Entry[T], error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		CacheMisses.WithLabelValues(m.name).Inc()
		return nil, ErrCacheMiss
	}

	if entry.IsExpired(m.now()) {
		m.mu.Lock()
		// Only evict if nobody replaced it in the meantime
		if current, ok := m.entries[key]; ok && current == entry {
			delete(m.entries, key)
			CacheEvictions.WithLabelValues(m.name).Inc()
		}
		m.mu.Unlock()
		CacheMisses.WithLabelValues(m.name).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(m.name, "memory").Inc()
	return entry, nil
}

// Set stores an entry. Entries that are already expired are not stored.
func (m *MemoryStore[T]) Set(_ context.Context, key string, entry *Entry[T]) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if entry.IsExpired(m.now()) {
		return nil
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Delete removes an entry.
func (m *MemoryStore[T]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
