package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-synth/internal/domain"
)

func TestSynthesisRunStore_InsertAndQuery(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSynthesisRunStore(conn)
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Insert(ctx, &domain.SynthesisRun{
			Fingerprint:    "fp-1",
			Source:         domain.SourceLive,
			PrimaryThemeID: "theme-1",
			PrimaryScore:   70.4,
			SecondaryCount: 2,
			WindowCount:    6,
			GeneratedFor:   base,
			RecordedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.Insert(ctx, &domain.SynthesisRun{
		Fingerprint: "fp-2", Source: domain.SourceMock, Degraded: true, GeneratedFor: base, RecordedAt: base,
	}))

	runs, err := store.GetByFingerprint(ctx, "fp-1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, base.Add(2*time.Minute), runs[0].RecordedAt)
	assert.Equal(t, domain.SourceLive, runs[0].Source)
	assert.Equal(t, 2, runs[0].SecondaryCount)
	assert.Equal(t, 6, runs[0].WindowCount)
	assert.Equal(t, domain.Day(base), runs[0].GeneratedFor)

	limited, err := store.GetByFingerprint(ctx, "fp-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	mock, err := store.GetByFingerprint(ctx, "fp-2", 0)
	require.NoError(t, err)
	require.Len(t, mock, 1)
	assert.True(t, mock[0].Degraded)
}
