package memory

import (
	"context"
	"sort"
	"sync"

	"transit-synth/internal/domain"
	"transit-synth/internal/storage"
)

// SynthesisRunStore is an in-memory implementation of storage.SynthesisRunStore.
type SynthesisRunStore struct {
	mu   sync.RWMutex
	runs []*domain.SynthesisRun
}

// NewSynthesisRunStore creates a new in-memory synthesis run store.
func NewSynthesisRunStore() *SynthesisRunStore {
	return &SynthesisRunStore{}
}

// Compile-time interface check.
var _ storage.SynthesisRunStore = (*SynthesisRunStore)(nil)

// Insert appends a run.
func (s *SynthesisRunStore) Insert(_ context.Context, run *domain.SynthesisRun) error {
	if err := storage.ValidateRun(run); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	runCopy := *run
	s.runs = append(s.runs, &runCopy)
	return nil
}

// GetByFingerprint retrieves runs for a fingerprint, newest first.
func (s *SynthesisRunStore) GetByFingerprint(_ context.Context, fingerprint string, limit int) ([]*domain.SynthesisRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SynthesisRun
	for _, r := range s.runs {
		if r.Fingerprint == fingerprint {
			runCopy := *r
			result = append(result, &runCopy)
		}
	}

	// Sort by recorded_at DESC
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].RecordedAt.After(result[j].RecordedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
