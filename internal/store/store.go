// Package store persists the request log used for rate limiting and the
// OAuth accounts of signed-in users in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS request_log (
    ip  TEXT    NOT NULL,
    ts  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_request_log_ip_ts ON request_log(ip, ts);

CREATE TABLE IF NOT EXISTS accounts (
    user_id     TEXT PRIMARY KEY,
    email       TEXT UNIQUE,
    name        TEXT NOT NULL DEFAULT '',
    token       TEXT NOT NULL DEFAULT '',
    updated_at  INTEGER NOT NULL DEFAULT 0
);
`

// Store wraps an SQLite connection.
type Store struct {
	db *sql.DB

	// mu serializes the read-check-insert of the rate limiter.
	mu sync.Mutex

	limits Limits
}

// Open opens or creates the SQLite database at path.
func Open(path string, limits Limits) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, limits: limits.withDefaults()}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
