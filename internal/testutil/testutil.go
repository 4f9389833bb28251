// Package testutil provides shared test helpers for music fixtures and caches.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/keepsake/internal/cache"
	"github.com/starford/keepsake/internal/storage"
)

// TestCache opens a temporary SQLite tag cache that is closed on cleanup.
func TestCache(t *testing.T) *cache.DB {
	t.Helper()
	db, err := cache.Open(filepath.Join(t.TempDir(), "tags.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestMusic creates a temporary music directory holding files and returns it
// with a storage provider rooted there.
func TestMusic(t *testing.T, files map[string][]byte) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		WriteFile(t, dir, name, data)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteFile writes data to name under dir, creating parent directories.
func WriteFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// ID3 builds a minimal ID3v2.3 tagged file with TIT2 and TPE1 frames and,
// when picture is non-empty, an APIC front cover of the given MIME type.
// Empty title or artist omits that frame.
func ID3(title, artist, mimeType string, picture []byte) []byte {
	var frames bytes.Buffer
	if title != "" {
		writeFrame(&frames, "TIT2", append([]byte{0}, title...))
	}
	if artist != "" {
		writeFrame(&frames, "TPE1", append([]byte{0}, artist...))
	}
	if len(picture) > 0 {
		var apic bytes.Buffer
		apic.WriteByte(0)
		apic.WriteString(mimeType)
		apic.WriteByte(0)
		apic.WriteByte(3) // front cover
		apic.WriteByte(0) // empty description
		apic.Write(picture)
		writeFrame(&frames, "APIC", apic.Bytes())
	}

	size := frames.Len()
	var out bytes.Buffer
	out.WriteString("ID3")
	out.Write([]byte{3, 0, 0})
	out.Write([]byte{
		byte(size>>21) & 0x7f,
		byte(size>>14) & 0x7f,
		byte(size>>7) & 0x7f,
		byte(size) & 0x7f,
	})
	out.Write(frames.Bytes())
	// A few bytes of fake audio so readers have something past the tag.
	out.Write([]byte{0xff, 0xfb, 0x90, 0x00})
	return out.Bytes()
}

func writeFrame(w *bytes.Buffer, id string, body []byte) {
	n := len(body)
	w.WriteString(id)
	w.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	w.Write([]byte{0, 0})
	w.Write(body)
}
