// Package fetch retrieves raw audio bytes for playlist sources.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/keepsake/internal/apperr"
	"github.com/starford/keepsake/internal/storage"
)

// MaxBodyBytes caps a single remote download.
const MaxBodyBytes = 64 << 20

// Storage reads sources from the local music directory. A leading slash is
// relative to the provider's root, matching how sources are written in config.
type Storage struct {
	store storage.Provider
}

// NewStorage returns a fetcher over store.
func NewStorage(store storage.Provider) *Storage {
	return &Storage{store: store}
}

// Fetch implements playlist.Fetcher.
func (s *Storage) Fetch(ctx context.Context, src string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.Read(strings.TrimPrefix(src, "/"))
}

// HTTP downloads sources relative to a base URL.
type HTTP struct {
	base   *url.URL
	client *http.Client
}

// NewHTTP returns a fetcher resolving sources against baseURL. A zero timeout
// leaves requests bounded only by their context.
func NewHTTP(baseURL string, timeout time.Duration) (*HTTP, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: base url must be http or https: %q", apperr.ErrInvalidArgument, baseURL)
	}
	return &HTTP{base: u, client: &http.Client{Timeout: timeout}}, nil
}

// Fetch implements playlist.Fetcher.
func (h *HTTP) Fetch(ctx context.Context, src string) ([]byte, error) {
	// Sources are relative to the base; a leading slash would replace its path.
	ref, err := url.Parse(strings.TrimPrefix(src, "/"))
	if err != nil {
		return nil, fmt.Errorf("fetch: parse source %q: %w", src, err)
	}
	target := h.base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, target)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("fetch: %s: unexpected status %s: %s", target, resp.Status, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch: read %s: %w", target, err)
	}
	if len(data) > MaxBodyBytes {
		return nil, fmt.Errorf("fetch: %s exceeds %d bytes", target, MaxBodyBytes)
	}
	return data, nil
}
