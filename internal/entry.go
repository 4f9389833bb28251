// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/keepsake/internal/api"
	"github.com/starford/keepsake/internal/lock"
	"github.com/starford/keepsake/internal/logging"
	"github.com/starford/keepsake/internal/mcpserver"
	"github.com/starford/keepsake/internal/playlist"
	"github.com/starford/keepsake/internal/sse"
	"github.com/starford/keepsake/internal/tui"
)

// Run starts the HTTP card with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := logging.New(app.logOutput, cfg.App.LogLevel, cfg.App.LogFormat)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("music_dir", cfg.Playlist.MusicDir),
		slog.String("base_url", cfg.Playlist.BaseURL),
		slog.String("cache_path", cfg.Cache.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := newCard(cfg, logger, func(id string, st lock.State) {
		broker.Publish(sse.Event{Type: lockEventType(st), Session: id, Data: map[string]string{"state": st.String()}})
	})
	if err != nil {
		return err
	}
	defer c.close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newRouter(c, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Warm the tag cache; the playlist waits for it.
	g.Go(func() error {
		c.warm(gCtx)
		return nil
	})

	g.Go(func() error {
		c.watch(gCtx, broker.PublishTrackEvent)
		return nil
	})

	g.Go(func() error {
		if err := c.resolve(gCtx); err != nil {
			broker.Publish(sse.Event{Type: sse.TypePlaylistFailed, Data: map[string]string{"error": err.Error()}})
			return nil
		}
		broker.Publish(sse.Event{Type: sse.TypePlaylistReady, Data: c.playlist.Snapshot()})
		return nil
	})

	g.Go(func() error {
		return c.sessions.Run(gCtx, cfg.Session.SweepInterval)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Stop the background workers too.
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the card's tools over stdio. Logs go to stderr unless
// redirected.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	out := app.logOutput
	if out == nil {
		out = os.Stderr
	}
	logger := logging.New(out, app.config.App.LogLevel, app.config.App.LogFormat)
	slog.SetDefault(logger)

	c, err := newCard(app.config, logger, nil)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.start(ctx)

	srv, err := mcpserver.New(ctx, c.service, app.version)
	if err != nil {
		return err
	}
	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}

// RunTUI opens the card in the terminal. Logs go to the configured log file.
func RunTUI(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, closer, err := logging.NewFile(cfg.App.LogFile, cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	events := make(chan tui.LockEvent, 8)
	c, err := newCard(cfg, logger, func(id string, st lock.State) {
		select {
		case events <- tui.LockEvent{Session: id, State: st}:
		default:
			logger.Warn("dropped lock event", slog.String("session", id), slog.String("state", st.String()))
		}
	})
	if err != nil {
		return err
	}
	defer c.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.start(ctx)

	model, err := tui.NewModel(ctx, c.service, events, c.playlist.Done())
	if err != nil {
		return err
	}
	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func lockEventType(st lock.State) string {
	if st == lock.Unlocked {
		return sse.TypeLockUnlocked
	}
	return sse.TypeLockUnlocking
}

// newRouter builds the HTTP handler: health checks, the music dir and the API.
func newRouter(c *card, broker *sse.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		st := c.playlist.State()
		code, status := readiness(st)
		writeHealth(w, code, map[string]string{"status": status, "playlist": st.String()})
	})

	// Local tracks are served under /music/ for playback.
	if c.store != nil && c.cfg.Playlist.BaseURL == "" {
		r.Handle("/music/*", http.StripPrefix("/music/", http.FileServer(http.Dir(c.store.Root()))))
	}

	r.Mount("/api", api.NewRouter(c.service, broker))
	return r
}

// readiness maps the playlist state to a probe status. A failed playlist still
// serves placeholders, so the card stays in rotation but reports degraded.
func readiness(st playlist.State) (int, string) {
	switch st {
	case playlist.Loading:
		return http.StatusServiceUnavailable, "loading"
	case playlist.Failed:
		return http.StatusOK, "degraded"
	default:
		return http.StatusOK, "ok"
	}
}

func writeHealth(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
