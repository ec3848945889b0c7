package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"transit-synth/internal/domain"
	"transit-synth/internal/storage"
)

// CacheStore implements storage.CacheStore using SQLite.
type CacheStore struct {
	db *DB
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(db *DB) *CacheStore {
	return &CacheStore{db: db}
}

// Compile-time interface check.
var _ storage.CacheStore = (*CacheStore)(nil)

// Get retrieves a row by key. Returns ErrNotFound if not exists.
func (s *CacheStore) Get(ctx context.Context, key string) (rec *domain.CacheRecord, err error) {
	start := time.Now()
	defer func() { observe("cache_get", start, err) }()

	query := `SELECT key, data, computed_at, expires_at FROM cache_entries WHERE key = ?`

	var computedAt, expiresAt int64
	rec = &domain.CacheRecord{}
	err = s.db.QueryRowContext(ctx, query, key).Scan(&rec.Key, &rec.Data, &computedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	rec.ComputedAt = fromMillis(computedAt)
	rec.ExpiresAt = fromMillis(expiresAt)
	return rec, nil
}

// Put inserts or replaces a row unless the stored row is newer.
func (s *CacheStore) Put(ctx context.Context, rec *domain.CacheRecord) (err error) {
	if err := storage.ValidateRecord(rec); err != nil {
		return err
	}
	start := time.Now()
	defer func() { observe("cache_put", start, err) }()

	query := `
		INSERT INTO cache_entries (key, data, computed_at, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			data = excluded.data,
			computed_at = excluded.computed_at,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
		WHERE cache_entries.computed_at <= excluded.computed_at
	`

	res, err := s.db.ExecContext(ctx, query,
		rec.Key, rec.Data, toMillis(rec.ComputedAt), toMillis(rec.ExpiresAt), toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("put cache entry rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrStaleWrite
	}
	return nil
}

// Delete removes a row.
func (s *CacheStore) Delete(ctx context.Context, key string) (err error) {
	start := time.Now()
	defer func() { observe("cache_delete", start, err) }()

	if _, err = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}
