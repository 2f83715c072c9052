package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/go-libsql"
)

// Open creates a SQLite connection via libSQL with WAL journal mode, a 5 s
// busy timeout and foreign keys enabled. The parent directory of a file path
// is created if missing.
//
// The pool is pinned to one connection. PRAGMAs are per connection, so a
// second pooled connection would run without the busy timeout and fail with
// "database is locked" instead of waiting; an in-memory database would also
// be a different, empty database on every connection.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// libSQL rejects Exec for PRAGMAs that return rows, but some PRAGMAs
	// (like foreign_keys=ON) return nothing. Use QueryContext and drain rows
	// to handle both cases uniformly.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		rows, err := db.QueryContext(ctx, p)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %s: %w", p, err)
		}
		rows.Close()
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}
