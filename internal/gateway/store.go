package gateway

import (
	"context"
	"sync"
	"time"
)

// Entry is the last successful response for a key
type Entry struct {
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FreshAt reports whether the entry is usable at now under ttl
func (e Entry) FreshAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// Store keeps entries past their TTL so they can be served stale after retries run out
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
}

// MemoryStore is a process-wide Store. Reads never block writers.
type MemoryStore struct {
	entries sync.Map // string -> Entry
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the entry for key, expired or not
func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	v, ok := s.entries.Load(key)
	if !ok {
		return Entry{}, false, nil
	}
	return v.(Entry), true, nil
}

// Set replaces the entry for key
func (s *MemoryStore) Set(_ context.Context, key string, e Entry) error {
	s.entries.Store(key, e)
	return nil
}
