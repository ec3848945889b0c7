package storage

import (
	"context"
	"fmt"

	"transit-synth/internal/domain"
)

// CacheStore persists cache rows keyed by "daily-sky" or "transits:<fingerprint>".
type CacheStore interface {
	// Get retrieves a row by key. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key string) (*domain.CacheRecord, error)

	// Put inserts or replaces a row. Returns ErrStaleWrite if the stored row
	// has a later computed_at; equal computed_at overwrites.
	Put(ctx context.Context, rec *domain.CacheRecord) error

	// Delete removes a row. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// SynthesisRunStore is an append-only log of dashboard computations.
type SynthesisRunStore interface {
	// Insert appends a run.
	Insert(ctx context.Context, run *domain.SynthesisRun) error

	// GetByFingerprint retrieves runs for a fingerprint, ordered by recorded_at DESC, limited to limit (0 = all).
	GetByFingerprint(ctx context.Context, fingerprint string, limit int) ([]*domain.SynthesisRun, error)
}

// ValidateRecord checks a cache row before it is written.
func ValidateRecord(rec *domain.CacheRecord) error {
	if rec == nil || rec.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidInput)
	}
	if rec.ComputedAt.IsZero() {
		return fmt.Errorf("%w: zero computed_at", ErrInvalidInput)
	}
	if !rec.ExpiresAt.After(rec.ComputedAt) {
		return fmt.Errorf("%w: expires_at must be after computed_at", ErrInvalidInput)
	}
	return nil
}

// ValidateRun checks a synthesis run before it is written.
func ValidateRun(run *domain.SynthesisRun) error {
	if run == nil || run.Fingerprint == "" {
		return fmt.Errorf("%w: empty fingerprint", ErrInvalidInput)
	}
	if !run.Source.IsValid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidInput, run.Source)
	}
	return nil
}
