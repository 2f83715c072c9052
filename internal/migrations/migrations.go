package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var fs embed.FS

// Run applies all pending migrations against db and returns how many were
// applied.
func Run(db *sql.DB) (int, error) {
	return RunContext(context.Background(), db)
}

func RunContext(ctx context.Context, db *sql.DB) (int, error) {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fs)
	if err != nil {
		return 0, fmt.Errorf("creating migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("running migrations: %w", err)
	}
	return len(results), nil
}
