package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/keepsake/internal/apperr"
	"github.com/starford/keepsake/internal/playlist"
)

// Entry is one cached extraction result.
type Entry struct {
	Source    string
	Checksum  string
	Tags      playlist.Tags
	UpdatedAt time.Time
}

// Get returns the entry for source when its stored checksum matches.
// A missing or stale row is apperr.ErrNotFound.
func (db *DB) Get(source, checksum string) (*Entry, error) {
	var (
		e       = Entry{Source: source}
		picture []byte
		format  string
	)
	err := db.conn.QueryRow(`
		SELECT checksum, title, artist, picture, picture_format, updated_at
		FROM tags WHERE source = ?
	`, source).Scan(&e.Checksum, &e.Tags.Title, &e.Tags.Artist, &picture, &format, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, source)
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get %s: %w", source, err)
	}
	if e.Checksum != checksum {
		return nil, fmt.Errorf("%w: %s changed", apperr.ErrNotFound, source)
	}
	if len(picture) > 0 {
		e.Tags.Picture = &playlist.Picture{Data: picture, Format: format}
	}
	return &e, nil
}

// Put inserts or replaces the entry for e.Source.
func (db *DB) Put(e Entry) error {
	var (
		picture []byte
		format  string
	)
	if p := e.Tags.Picture; p != nil {
		picture, format = p.Data, p.Format
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(`
		INSERT INTO tags (source, checksum, title, artist, picture, picture_format, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			checksum       = excluded.checksum,
			title          = excluded.title,
			artist         = excluded.artist,
			picture        = excluded.picture,
			picture_format = excluded.picture_format,
			updated_at     = excluded.updated_at
	`, e.Source, e.Checksum, e.Tags.Title, e.Tags.Artist, picture, format, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", e.Source, err)
	}
	return nil
}

// DeleteSource removes the entry for source. Deleting a missing row is not an error.
func (db *DB) DeleteSource(source string) error {
	if _, err := db.conn.Exec(`DELETE FROM tags WHERE source = ?`, source); err != nil {
		return fmt.Errorf("cache: delete %s: %w", source, err)
	}
	return nil
}

// Checksums returns source → checksum for every cached row.
func (db *DB) Checksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT source, checksum FROM tags`)
	if err != nil {
		return nil, fmt.Errorf("cache: list checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var src, cs string
		if err := rows.Scan(&src, &cs); err != nil {
			return nil, fmt.Errorf("cache: scan checksum: %w", err)
		}
		out[src] = cs
	}
	return out, rows.Err()
}
