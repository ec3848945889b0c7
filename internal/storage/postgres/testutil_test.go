package postgres

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationGlob matches the schema files, relative to this package. The
// migrations package imports this one, so the files are mounted as init
// scripts instead of being applied through it.
const migrationGlob = "../migrations/postgres/*.sql"

// newTestPool starts a PostgreSQL container with the cache schema applied.
// The container is terminated when the test ends.
func newTestPool(t *testing.T) *Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	scripts, err := filepath.Glob(migrationGlob)
	require.NoError(t, err)
	require.NotEmpty(t, scripts, "no migrations match %s", migrationGlob)
	sort.Strings(scripts)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("transit_synth"),
		tcpostgres.WithUsername("transit"),
		tcpostgres.WithPassword("transit"),
		tcpostgres.WithInitScripts(scripts...),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "connect")
	t.Cleanup(pool.Close)
	return pool
}
