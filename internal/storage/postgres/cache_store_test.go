package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-synth/internal/domain"
	"transit-synth/internal/storage"
)

func TestCacheStore_PutGet(t *testing.T) {
	pool := newTestPool(t)

	store := NewCacheStore(pool)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	rec := &domain.CacheRecord{
		Key:        domain.DailySkyKey,
		Data:       []byte(`{"date":"2024-03-10T00:00:00Z"}`),
		ComputedAt: now,
		ExpiresAt:  domain.NextUTCDay(now),
	}
	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, domain.DailySkyKey)
	require.NoError(t, err)
	assert.Equal(t, rec.Key, got.Key)
	assert.JSONEq(t, string(rec.Data), string(got.Data))
	assert.True(t, rec.ComputedAt.Equal(got.ComputedAt))
	assert.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))
}

func TestCacheStore_GetNotFound(t *testing.T) {
	pool := newTestPool(t)

	store := NewCacheStore(pool)

	_, err := store.Get(context.Background(), "transits:missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestCacheStore_MonotonicComputedAt(t *testing.T) {
	pool := newTestPool(t)

	store := NewCacheStore(pool)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	key := domain.TransitsKey("fp")

	newer := &domain.CacheRecord{Key: key, Data: []byte(`{"v":2}`), ComputedAt: now, ExpiresAt: now.Add(24 * time.Hour)}
	older := &domain.CacheRecord{Key: key, Data: []byte(`{"v":1}`), ComputedAt: now.Add(-time.Hour), ExpiresAt: now.Add(23 * time.Hour)}

	require.NoError(t, store.Put(ctx, newer))
	err := store.Put(ctx, older)
	assert.True(t, errors.Is(err, storage.ErrStaleWrite))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got.Data))

	newest := &domain.CacheRecord{Key: key, Data: []byte(`{"v":3}`), ComputedAt: now.Add(time.Hour), ExpiresAt: now.Add(25 * time.Hour)}
	require.NoError(t, store.Put(ctx, newest))
	got, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":3}`, string(got.Data))
}

func TestCacheStore_Delete(t *testing.T) {
	pool := newTestPool(t)

	store := NewCacheStore(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Put(ctx, &domain.CacheRecord{Key: "k", Data: []byte(`{}`), ComputedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestCacheStore_ExpiryCheckConstraint(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := pool.Exec(ctx,
		`INSERT INTO cache_entries (key, data, computed_at, expires_at) VALUES ($1, $2, $3, $4)`,
		"transits:bad", []byte(`{}`), now, now)
	require.Error(t, err)
	assert.True(t, isCheckViolation(err))
	assert.False(t, isCheckViolation(errors.New("other")))
}

func TestNewPool_ApplicationName(t *testing.T) {
	pool := newTestPool(t)

	var name string
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT current_setting('application_name')`).Scan(&name))
	assert.Equal(t, applicationName, name)
}
