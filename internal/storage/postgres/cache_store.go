package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"transit-synth/internal/domain"
	"transit-synth/internal/storage"
)

// CacheStore implements storage.CacheStore using PostgreSQL.
type CacheStore struct {
	pool *Pool
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(pool *Pool) *CacheStore {
	return &CacheStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CacheStore = (*CacheStore)(nil)

// checkViolation is the SQLSTATE of a failed CHECK constraint
// (cache_entries_expiry_after_compute).
const checkViolation = "23514"

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == checkViolation
}

// Get retrieves a row by key. Returns ErrNotFound if not exists.
func (s *CacheStore) Get(ctx context.Context, key string) (rec *domain.CacheRecord, err error) {
	start := time.Now()
	defer func() { observe("cache_get", start, err) }()

	query := `
		SELECT key, data, computed_at, expires_at
		FROM cache_entries
		WHERE key = $1
	`

	rec = &domain.CacheRecord{}
	err = s.pool.QueryRow(ctx, query, key).Scan(&rec.Key, &rec.Data, &rec.ComputedAt, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	rec.ComputedAt = rec.ComputedAt.UTC()
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	return rec, nil
}

// Put inserts or replaces a row. The conditional upsert keeps computed_at
// monotonic per key; a skipped update means the stored row is newer.
func (s *CacheStore) Put(ctx context.Context, rec *domain.CacheRecord) (err error) {
	if err := storage.ValidateRecord(rec); err != nil {
		return err
	}
	start := time.Now()
	defer func() { observe("cache_put", start, err) }()

	query := `
		INSERT INTO cache_entries (key, data, computed_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (key) DO UPDATE SET
			data = EXCLUDED.data,
			computed_at = EXCLUDED.computed_at,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
		WHERE cache_entries.computed_at <= EXCLUDED.computed_at
	`

	tag, err := s.pool.Exec(ctx, query, rec.Key, rec.Data, rec.ComputedAt.UTC(), rec.ExpiresAt.UTC())
	if err != nil {
		if isCheckViolation(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("put cache entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrStaleWrite
	}
	return nil
}

// Delete removes a row.
func (s *CacheStore) Delete(ctx context.Context, key string) (err error) {
	start := time.Now()
	defer func() { observe("cache_delete", start, err) }()

	if _, err = s.pool.Exec(ctx, `DELETE FROM cache_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}
