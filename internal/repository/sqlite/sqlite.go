// Package sqlite implements the repository interfaces on an embedded
// SQLite database. modernc.org/sqlite is a pure Go driver, so the binary
// cross-compiles without a C toolchain.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at path and runs migrations.
// Use ":memory:" for tests.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent invokes.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		handler        TEXT NOT NULL,
		mode           TEXT NOT NULL,
		exit_code      INTEGER NOT NULL,
		stdout         TEXT NOT NULL,
		stderr         TEXT NOT NULL,
		breakpoint_hit INTEGER NOT NULL DEFAULT 0,
		duration_ms    INTEGER NOT NULL,
		created_at     TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
	`
	_, err := db.conn.Exec(schema)
	return err
}
