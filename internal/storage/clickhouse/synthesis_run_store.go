package clickhouse

import (
	"context"
	"fmt"
	"time"

	"transit-synth/internal/domain"
	"transit-synth/internal/storage"
)

// SynthesisRunStore implements storage.SynthesisRunStore using ClickHouse.
type SynthesisRunStore struct {
	conn *Conn
}

// NewSynthesisRunStore creates a new SynthesisRunStore.
func NewSynthesisRunStore(conn *Conn) *SynthesisRunStore {
	return &SynthesisRunStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SynthesisRunStore = (*SynthesisRunStore)(nil)

// Insert appends a run.
func (s *SynthesisRunStore) Insert(ctx context.Context, run *domain.SynthesisRun) (err error) {
	if err := storage.ValidateRun(run); err != nil {
		return err
	}
	start := time.Now()
	defer func() { observe("synthesis_run_insert", start, err) }()

	query := `
		INSERT INTO synthesis_runs (
			fingerprint, source, primary_theme_id, primary_score,
			secondary_count, window_count, degraded, generated_for, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = s.conn.Exec(ctx, query,
		run.Fingerprint,
		string(run.Source),
		run.PrimaryThemeID,
		run.PrimaryScore,
		uint8(run.SecondaryCount),
		uint16(run.WindowCount),
		run.Degraded,
		domain.Day(run.GeneratedFor),
		run.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert synthesis run: %w", err)
	}
	return nil
}

// GetByFingerprint retrieves runs for a fingerprint, ordered by recorded_at DESC.
func (s *SynthesisRunStore) GetByFingerprint(ctx context.Context, fingerprint string, limit int) (runs []*domain.SynthesisRun, err error) {
	start := time.Now()
	defer func() { observe("synthesis_run_get", start, err) }()

	query := `
		SELECT fingerprint, source, primary_theme_id, primary_score,
			secondary_count, window_count, degraded, generated_for, recorded_at
		FROM synthesis_runs
		WHERE fingerprint = ?
		ORDER BY recorded_at DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.conn.Query(ctx, query, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("query synthesis runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r              domain.SynthesisRun
			source         string
			secondaryCount uint8
			windowCount    uint16
		)
		if err := rows.Scan(
			&r.Fingerprint, &source, &r.PrimaryThemeID, &r.PrimaryScore,
			&secondaryCount, &windowCount, &r.Degraded, &r.GeneratedFor, &r.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan synthesis run: %w", err)
		}
		r.Source = domain.Source(source)
		r.SecondaryCount = int(secondaryCount)
		r.WindowCount = int(windowCount)
		r.GeneratedFor = r.GeneratedFor.UTC()
		r.RecordedAt = r.RecordedAt.UTC()
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate synthesis runs: %w", err)
	}
	return runs, nil
}
