package memory

import (
	"context"
	"sync"

	"transit-synth/internal/domain"
	"transit-synth/internal/storage"
)

// CacheStore is an in-memory implementation of storage.CacheStore.
type CacheStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CacheRecord // keyed by cache key
}

// NewCacheStore creates a new in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		data: make(map[string]*domain.CacheRecord),
	}
}

// Compile-time interface check.
var _ storage.CacheStore = (*CacheStore)(nil)

// Get retrieves a row by key. Returns ErrNotFound if not exists.
func (s *CacheStore) Get(_ context.Context, key string) (*domain.CacheRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyRecord(rec), nil
}

// Put inserts or replaces a row. Returns ErrStaleWrite if the stored row is newer.
func (s *CacheStore) Put(_ context.Context, rec *domain.CacheRecord) error {
	if err := storage.ValidateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[rec.Key]; ok && existing.ComputedAt.After(rec.ComputedAt) {
		return storage.ErrStaleWrite
	}

	// Store a copy to prevent external mutation
	s.data[rec.Key] = copyRecord(rec)
	return nil
}

// Delete removes a row.
func (s *CacheStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Len returns the number of stored rows.
func (s *CacheStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func copyRecord(rec *domain.CacheRecord) *domain.CacheRecord {
	c := *rec
	c.Data = append([]byte(nil), rec.Data...)
	return &c
}
