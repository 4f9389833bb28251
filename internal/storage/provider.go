// Package storage exposes the card's music directory.
package storage

import "time"

// AudioFile describes one playable file under the music root.
type AudioFile struct {
	// Path is slash-separated and relative to the root.
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is read access to the music directory.
type Provider interface {
	// Root returns the absolute directory the provider serves.
	Root() string
	// List returns every audio file under the root, sorted by path.
	List() ([]AudioFile, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
}
