package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"transit-synth/internal/domain"
	"transit-synth/internal/storage"
)

func record(key string, computedAt time.Time, data string) *domain.CacheRecord {
	return &domain.CacheRecord{
		Key:        key,
		Data:       []byte(data),
		ComputedAt: computedAt,
		ExpiresAt:  computedAt.Add(24 * time.Hour),
	}
}

func TestCacheStore_PutGet(t *testing.T) {
	store := NewCacheStore()
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	if err := store.Put(ctx, record(domain.DailySkyKey, now, `{"a":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, domain.DailySkyKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Data) != `{"a":1}` {
		t.Errorf("unexpected data %s", got.Data)
	}
	if !got.ComputedAt.Equal(now) {
		t.Errorf("expected computed_at %v, got %v", now, got.ComputedAt)
	}
}

func TestCacheStore_NotFound(t *testing.T) {
	store := NewCacheStore()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCacheStore_StaleWriteRejected(t *testing.T) {
	store := NewCacheStore()
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	if err := store.Put(ctx, record("transits:fp", now, "new")); err != nil {
		t.Fatalf("put: %v", err)
	}
	err := store.Put(ctx, record("transits:fp", now.Add(-time.Minute), "old"))
	if !errors.Is(err, storage.ErrStaleWrite) {
		t.Fatalf("expected ErrStaleWrite, got %v", err)
	}

	// Same computed_at overwrites.
	if err := store.Put(ctx, record("transits:fp", now, "again")); err != nil {
		t.Fatalf("put equal computed_at: %v", err)
	}
	got, _ := store.Get(ctx, "transits:fp")
	if string(got.Data) != "again" {
		t.Errorf("expected overwrite, got %s", got.Data)
	}
}

func TestCacheStore_InvalidInput(t *testing.T) {
	store := NewCacheStore()
	ctx := context.Background()
	now := time.Now()

	tests := []*domain.CacheRecord{
		nil,
		{Key: "", ComputedAt: now, ExpiresAt: now.Add(time.Hour)},
		{Key: "k", ExpiresAt: now},
		{Key: "k", ComputedAt: now, ExpiresAt: now},
	}
	for i, rec := range tests {
		if err := store.Put(ctx, rec); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestCacheStore_CopyOnReadAndWrite(t *testing.T) {
	store := NewCacheStore()
	ctx := context.Background()
	rec := record("k", time.Now(), "abc")

	_ = store.Put(ctx, rec)
	rec.Data[0] = 'X'

	got, _ := store.Get(ctx, "k")
	if string(got.Data) != "abc" {
		t.Errorf("stored record was mutated: %s", got.Data)
	}
	got.Data[0] = 'Y'
	again, _ := store.Get(ctx, "k")
	if string(again.Data) != "abc" {
		t.Errorf("returned record aliases storage: %s", again.Data)
	}
}

func TestCacheStore_Delete(t *testing.T) {
	store := NewCacheStore()
	ctx := context.Background()
	_ = store.Put(ctx, record("k", time.Now(), "abc"))

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d", store.Len())
	}
}
