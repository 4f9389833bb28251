package cache

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/keepsake/internal/playlist"
	"github.com/starford/keepsake/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven cache change with the
// affected playlist source.
type EventCallback func(kind, source string)

const reconcileDelay = 200 * time.Millisecond

// Watch keeps the cache in step with the music directory until ctx is
// cancelled. Created or rewritten audio files are re-extracted, removed ones
// are evicted, and renames trigger a debounced reconcile pass.
func Watch(ctx context.Context, db Store, store storage.Provider, ext playlist.Extractor, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	var (
		reconcileTimer *time.Timer
		reconcileCh    <-chan time.Time
	)
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}
	notify := func(kind, src string) {
		if cb != nil {
			cb(kind, src)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := Sync(ctx, db, store, ext, logger); err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed", slog.String("path", ev.Name), slog.String("error", addErr.Error()))
					}
					scheduleReconcile()
					continue
				}
			}

			if !storage.IsAudio(ev.Name) {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			src := SourceFor(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				if err := refresh(ctx, db, ext, src, data); err != nil {
					logger.Debug("watcher: not cached", slog.String("path", rel), slog.String("error", err.Error()))
					notify(EventDeleted, src)
					continue
				}
				logger.Debug("watcher: cached", slog.String("path", rel))
				notify(EventUpdated, src)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path only; the new path arrives as a
				// Create when it stays inside a watched dir.
				if err := db.DeleteSource(src); err != nil {
					logger.Warn("watcher: delete failed", slog.String("source", src), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: evicted", slog.String("source", src))
				notify(EventDeleted, src)
				if ev.Op&fsnotify.Rename != 0 {
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
