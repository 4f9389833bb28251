package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/keepsake/internal/apperr"
	"github.com/starford/keepsake/internal/playlist"
	"github.com/starford/keepsake/internal/storage"
)

// Extractor serves tags from the cache and falls through to next on a miss.
// Only successful extractions are stored; cache failures never fail an item.
type Extractor struct {
	store  Store
	next   playlist.Extractor
	logger *slog.Logger
}

// NewExtractor wraps next with store.
func NewExtractor(store Store, next playlist.Extractor, logger *slog.Logger) *Extractor {
	return &Extractor{store: store, next: next, logger: logger}
}

// Ready reports the wrapped extractor's readiness; a warm cache does not make
// the capability available.
func (e *Extractor) Ready() bool { return e.next.Ready() }

// Extract implements playlist.Extractor.
func (e *Extractor) Extract(ctx context.Context, src string, data []byte) (*playlist.Tags, error) {
	sum := storage.Checksum(data)

	hit, err := e.store.Get(src, sum)
	switch {
	case err == nil:
		t := hit.Tags
		return &t, nil
	case !errors.Is(err, apperr.ErrNotFound):
		e.logger.Warn("cache: lookup failed", slog.String("source", src), slog.String("error", err.Error()))
	}

	tags, err := e.next.Extract(ctx, src, data)
	if err != nil {
		return nil, err
	}
	if tags != nil {
		if err := e.store.Put(Entry{Source: src, Checksum: sum, Tags: *tags}); err != nil {
			e.logger.Warn("cache: store failed", slog.String("source", src), slog.String("error", err.Error()))
		}
	}
	return tags, nil
}
