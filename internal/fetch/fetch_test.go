package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/keepsake/internal/apperr"
	"github.com/starford/keepsake/internal/testutil"
)

func TestStorageFetch(t *testing.T) {
	_, store := testutil.TestMusic(t, map[string][]byte{"a.mp3": []byte("AAA")})
	f := NewStorage(store)

	got, err := f.Fetch(context.Background(), "/a.mp3")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(got) != "AAA" {
		t.Errorf("got %q", got)
	}

	if _, err := f.Fetch(context.Background(), "/missing.mp3"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
	if _, err := f.Fetch(context.Background(), "/../etc/passwd"); err == nil {
		t.Error("expected traversal error")
	}
}

func TestHTTPFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/music/a.mp3":
			_, _ = w.Write([]byte("remote-a"))
		case "/music/broken.mp3":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f, err := NewHTTP(srv.URL+"/music/", time.Second)
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}

	got, err := f.Fetch(context.Background(), "a.mp3")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(got) != "remote-a" {
		t.Errorf("got %q", got)
	}

	got, err = f.Fetch(context.Background(), "/a.mp3")
	if err != nil {
		t.Fatalf("Fetch rooted source: %v", err)
	}
	if string(got) != "remote-a" {
		t.Errorf("rooted source got %q", got)
	}

	if _, err := f.Fetch(context.Background(), "nope.mp3"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("404 err = %v", err)
	}
	if _, err := f.Fetch(context.Background(), "broken.mp3"); err == nil {
		t.Error("expected error for 500")
	}
}

func TestHTTPFetchHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f, err := NewHTTP(srv.URL, 0)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.Fetch(ctx, "/slow.mp3"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestNewHTTPRejectsBadBase(t *testing.T) {
	for _, base := range []string{"ftp://x", "::not a url", ""} {
		if _, err := NewHTTP(base, 0); err == nil {
			t.Errorf("NewHTTP(%q) succeeded", base)
		}
	}
}
