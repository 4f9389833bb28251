// Package cache persists extracted audio tags in SQLite, keyed by source and
// content checksum, so repeated playlist loads skip re-parsing unchanged files.
package cache

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tags (
	source         TEXT PRIMARY KEY,
	checksum       TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	artist         TEXT NOT NULL DEFAULT '',
	picture        BLOB,
	picture_format TEXT NOT NULL DEFAULT '',
	updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tags_checksum ON tags(checksum);
`

// Store is the tag cache contract. Consumers depend on it rather than *DB so
// tests can substitute a fake.
type Store interface {
	Get(source, checksum string) (*Entry, error)
	Put(e Entry) error
	DeleteSource(source string) error
	Checksums() (map[string]string, error)
	Close() error
}

var _ Store = (*DB)(nil)

// DB wraps a sql.DB with tag cache operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
