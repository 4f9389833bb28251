// Package playlist resolves the card's audio sources into display-ready tracks.
//
// Loading waits for the tag-extraction capability to come up, then fetches and
// tags every source concurrently. Per-track failures degrade to placeholder
// metadata; only a capability that never appears fails the batch.
package playlist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/keepsake/internal/apperr"
)

// Defaults for the capability poll.
const (
	DefaultPollInterval = 250 * time.Millisecond
	DefaultMaxAttempts  = 20
)

// ErrCapabilityUnavailable is returned when the extractor never reports ready.
var ErrCapabilityUnavailable = fmt.Errorf("%w: tag extraction capability did not become ready", apperr.ErrUnavailable)

// Fetcher retrieves the raw bytes of a source location.
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, error)
}

// Extractor reads embedded metadata from raw audio bytes. Ready reports whether
// the capability can be used yet; hosts may bring it up after the loader starts.
type Extractor interface {
	Ready() bool
	Extract(ctx context.Context, src string, data []byte) (*Tags, error)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPoll sets the capability poll interval and the maximum number of checks.
func WithPoll(interval time.Duration, maxAttempts int) LoaderOption {
	return func(l *Loader) {
		if interval > 0 {
			l.interval = interval
		}
		if maxAttempts > 0 {
			l.maxAttempts = maxAttempts
		}
	}
}

// WithFetchTimeout bounds each individual fetch. Zero means no bound.
func WithFetchTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) { l.fetchTimeout = d }
}

// WithLogger sets the logger used for per-track warnings.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loader turns source locations into tracks.
type Loader struct {
	fetcher      Fetcher
	extractor    Extractor
	interval     time.Duration
	maxAttempts  int
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// NewLoader creates a loader over the given collaborators.
func NewLoader(f Fetcher, e Extractor, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetcher:     f,
		extractor:   e,
		interval:    DefaultPollInterval,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves sources into tracks in the same order. It fails only when the
// extractor does not become ready or ctx ends while waiting for it.
func (l *Loader) Load(ctx context.Context, sources []string) ([]Track, error) {
	if err := l.awaitCapability(ctx); err != nil {
		return nil, err
	}

	tracks := make([]Track, len(sources))
	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			tracks[i] = l.resolve(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	return tracks, nil
}

// awaitCapability checks Ready immediately and then once per interval, for at
// most maxAttempts checks in total.
func (l *Loader) awaitCapability(ctx context.Context) error {
	if l.extractor.Ready() {
		return nil
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for attempt := 1; attempt < l.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("playlist: waiting for tag extractor: %w", ctx.Err())
		case <-ticker.C:
		}
		if l.extractor.Ready() {
			l.logger.Debug("playlist: tag extractor ready", slog.Int("attempts", attempt+1))
			return nil
		}
	}
	return ErrCapabilityUnavailable
}

// resolve never fails: every error becomes a fallback track.
func (l *Loader) resolve(ctx context.Context, src string) Track {
	data, err := l.fetch(ctx, src)
	if err != nil {
		l.logger.Warn("playlist: fetch failed", slog.String("source", src), slog.String("error", err.Error()))
		return fallbackTrack(src)
	}

	tags, err := l.extractor.Extract(ctx, src, data)
	if err != nil {
		l.logger.Warn("playlist: tag read failed", slog.String("source", src), slog.String("error", err.Error()))
		return fallbackTrack(src)
	}

	t, err := trackFromTags(src, tags)
	if err != nil {
		l.logger.Warn("playlist: cover dropped", slog.String("source", src), slog.String("error", err.Error()))
	}
	return t
}

func (l *Loader) fetch(ctx context.Context, src string) ([]byte, error) {
	if l.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.fetchTimeout)
		defer cancel()
	}
	return l.fetcher.Fetch(ctx, src)
}
