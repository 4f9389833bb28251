package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/keepsake/internal/cache"
	"github.com/starford/keepsake/internal/cardservice"
	"github.com/starford/keepsake/internal/fetch"
	"github.com/starford/keepsake/internal/keepsake"
	"github.com/starford/keepsake/internal/playlist"
	"github.com/starford/keepsake/internal/session"
	"github.com/starford/keepsake/internal/storage"
	"github.com/starford/keepsake/internal/tags"
)

var errConfigRequired = errors.New("config is required")

// card holds the components shared by every front end.
type card struct {
	cfg    *Config
	logger *slog.Logger

	// store is nil when tracks come from base_url and music_dir is absent.
	store *storage.FS

	// db is nil when the tag cache is disabled; maintainer is nil unless this
	// process keeps the cache in sync.
	db         *cache.DB
	maintainer *cache.Maintainer
	reader     *tags.Reader

	loader   *playlist.Loader
	playlist *playlist.Playlist
	sources  []string

	sessions *session.Registry
	service  *cardservice.Service
}

func newCard(cfg *Config, logger *slog.Logger, notify session.NotifyFunc) (*card, error) {
	c := &card{cfg: cfg, logger: logger, reader: tags.NewReader(), playlist: playlist.New()}

	store, err := storage.NewFS(cfg.Playlist.MusicDir)
	switch {
	case err == nil:
		c.store = store
	case cfg.Playlist.BaseURL != "":
		logger.Warn("music dir unavailable, cache sync disabled",
			slog.String("music_dir", cfg.Playlist.MusicDir),
			slog.String("error", err.Error()))
	default:
		return nil, fmt.Errorf("init storage: %w", err)
	}

	var fetcher playlist.Fetcher
	if cfg.Playlist.BaseURL != "" {
		h, err := fetch.NewHTTP(cfg.Playlist.BaseURL, cfg.Playlist.FetchTimeout)
		if err != nil {
			return nil, err
		}
		fetcher = h
	} else {
		fetcher = fetch.NewStorage(c.store)
	}

	var ext playlist.Extractor = c.reader
	if cfg.Cache.Enabled() {
		db, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("init tag cache: %w", err)
		}
		c.db = db
		ext = cache.NewExtractor(db, c.reader, logger)

		if c.store != nil {
			m, ok, err := cache.AcquireMaintainer(cfg.Cache.Path)
			switch {
			case err != nil:
				logger.Warn("cache maintenance disabled", slog.String("error", err.Error()))
			case !ok:
				logger.Info("another process maintains the tag cache", slog.String("path", cfg.Cache.Path))
			default:
				c.maintainer = m
			}
		}
	}
	c.loader = playlist.NewLoader(fetcher, ext,
		playlist.WithPoll(cfg.Playlist.PollInterval, cfg.Playlist.MaxAttempts),
		playlist.WithFetchTimeout(cfg.Playlist.FetchTimeout),
		playlist.WithLogger(logger),
	)

	if c.sources, err = c.playlistSources(); err != nil {
		c.close()
		return nil, err
	}

	items, err := cfg.LoadKeepsakes()
	if err != nil {
		c.close()
		return nil, err
	}
	ks, err := keepsake.NewCollection(items)
	if err != nil {
		c.close()
		return nil, fmt.Errorf("init keepsakes: %w", err)
	}

	opts := []session.Option{session.WithLogger(logger)}
	if notify != nil {
		opts = append(opts, session.WithNotify(notify))
	}
	c.sessions = session.NewRegistry(session.Config{
		Target:         cfg.Lock.Target(),
		UnlockDelay:    cfg.Lock.UnlockDelay,
		TTL:            cfg.Session.TTL,
		TurnsPerSecond: cfg.Session.TurnsPerSecond,
		Burst:          cfg.Session.Burst,

		MaxSessions:      cfg.Session.MaxSessions,
		CreatesPerSecond: cfg.Session.CreatesPerSecond,
		CreateBurst:      cfg.Session.CreateBurst,
	}, opts...)

	c.service = cardservice.NewService(c.sessions, c.playlist, ks)
	return c, nil
}

// playlistSources returns the configured sources, or every audio file in the
// music dir when none are configured.
func (c *card) playlistSources() ([]string, error) {
	if len(c.cfg.Playlist.Sources) > 0 || c.store == nil {
		return c.cfg.Playlist.Sources, nil
	}
	files, err := c.store.List()
	if err != nil {
		return nil, fmt.Errorf("list music dir: %w", err)
	}
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = cache.SourceFor(f.Path)
	}
	return out, nil
}

// warm brings the tag cache up to date. The playlist does not wait for it;
// cache misses fall through to the tag reader.
func (c *card) warm(ctx context.Context) {
	if c.maintainer == nil {
		return
	}
	if err := cache.Sync(ctx, c.db, c.store, c.reader, c.logger); err != nil {
		c.logger.Warn("initial cache sync failed", slog.String("error", err.Error()))
	}
}

// watch keeps the cache in step with the music dir until ctx ends.
func (c *card) watch(ctx context.Context, cb cache.EventCallback) {
	if c.maintainer == nil {
		return
	}
	if err := cache.Watch(ctx, c.db, c.store, c.reader, c.logger, cb); err != nil {
		c.logger.Warn("music dir watcher stopped", slog.String("error", err.Error()))
	}
}

// resolve loads the playlist once and logs the outcome.
func (c *card) resolve(ctx context.Context) error {
	err := c.playlist.Resolve(ctx, c.loader, c.sources)
	if err != nil {
		c.logger.Error("playlist failed to load", slog.String("error", err.Error()))
		return err
	}
	c.logger.Info("playlist ready", slog.Int("tracks", len(c.playlist.Snapshot().Tracks)))
	return nil
}

// start warms the cache and resolves the playlist in the background.
func (c *card) start(ctx context.Context) {
	go c.warm(ctx)
	go func() { _ = c.resolve(ctx) }()
}

func (c *card) close() {
	if c.sessions != nil {
		c.sessions.Close()
	}
	if c.maintainer != nil {
		if err := c.maintainer.Release(); err != nil {
			c.logger.Warn("releasing cache lock", slog.String("error", err.Error()))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Warn("closing tag cache", slog.String("error", err.Error()))
		}
	}
}
