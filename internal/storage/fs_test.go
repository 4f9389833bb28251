package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/keepsake/internal/apperr"
)

func tempMusic(t *testing.T, files map[string]string) *FS {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestRead(t *testing.T) {
	s := tempMusic(t, map[string]string{"album/song.mp3": "ID3..."})
	got, err := s.Read("album/song.mp3")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "ID3..." {
		t.Errorf("content = %q", got)
	}
}

func TestReadMissing(t *testing.T) {
	s := tempMusic(t, nil)
	if _, err := s.Read("nope.mp3"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	s := tempMusic(t, map[string]string{
		"b.mp3":          "b",
		"a/c.FLAC":       "c",
		"a.m4a":          "a",
		"cover.jpg":      "not audio",
		".hidden/x.mp3":  "skipped",
		"notes/read.txt": "no",
	})

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"a.m4a", "a/c.FLAC", "b.mp3"}
	if len(items) != len(want) {
		t.Fatalf("got %d items (%+v), want %d", len(items), items, len(want))
	}
	for i, p := range want {
		if items[i].Path != p {
			t.Errorf("items[%d].Path = %q, want %q", i, items[i].Path, p)
		}
	}
	if items[2].Checksum != Checksum([]byte("b")) || items[2].Size != 1 {
		t.Errorf("items[2] = %+v", items[2])
	}
	if items[0].UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempMusic(t, nil)

	cases := []string{
		"../../etc/passwd",
		"../outside.mp3",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Errorf("Read(%q) err = %v, want ErrInvalidArgument", p, err)
		}
	}
}

func TestIsAudio(t *testing.T) {
	for name, want := range map[string]bool{"a.mp3": true, "A.MP3": true, "b.ogg": true, "c.txt": false, "mp3": false} {
		if got := IsAudio(name); got != want {
			t.Errorf("IsAudio(%q) = %v", name, got)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(f); err == nil {
		t.Error("expected error when root is a file")
	}
}
