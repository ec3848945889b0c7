package migrations

import (
	"context"
	"fmt"

	"transit-synth/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order.
// Migrations are expected to be idempotent.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, contents, err := readFiles(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, file := range files {
		if _, err := pool.Exec(ctx, contents[file]); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return nil
}
