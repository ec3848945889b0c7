package migrations

import (
	"context"
	"fmt"

	"transit-synth/internal/storage/sqlite"
)

// RunSQLiteMigrations applies all embedded SQL files in lexical order, one
// statement at a time. Migrations are expected to be idempotent.
func RunSQLiteMigrations(ctx context.Context, db *sqlite.DB) error {
	files, contents, err := readFiles(SQLiteFS, "sqlite")
	if err != nil {
		return err
	}

	for _, file := range files {
		if err := validateNoSemicolonInStrings(contents[file]); err != nil {
			return fmt.Errorf("validate migration %s: %w", file, err)
		}
		for _, stmt := range splitStatements(contents[file]) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", file, err)
			}
		}
	}
	return nil
}
