package cache

import (
	"context"
	"log/slog"
	"path"

	"github.com/starford/keepsake/internal/playlist"
	"github.com/starford/keepsake/internal/storage"
)

// SourceFor maps a music-dir relative path to the playlist source it is
// requested as.
func SourceFor(rel string) string {
	return path.Join("/", rel)
}

// Sync walks the music directory and brings the cache up to date:
//   - new/changed files are extracted and stored
//   - rows for files no longer on disk are deleted
func Sync(ctx context.Context, db Store, store storage.Provider, ext playlist.Extractor, logger *slog.Logger) error {
	files, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.Checksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		src := SourceFor(f.Path)
		disk[src] = struct{}{}

		if checksums[src] == f.Checksum {
			continue
		}
		data, err := store.Read(f.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		if err := refresh(ctx, db, ext, src, data); err != nil {
			logger.Debug("sync: not cached", slog.String("path", f.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: cached", slog.String("path", f.Path))
		}
	}

	for src := range checksums {
		if _, ok := disk[src]; ok {
			continue
		}
		if err := db.DeleteSource(src); err != nil {
			logger.Warn("sync: delete failed", slog.String("source", src), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("source", src))
		}
	}
	return nil
}

// refresh extracts data and stores the result. A file whose tags cannot be
// read loses any previous row.
func refresh(ctx context.Context, db Store, ext playlist.Extractor, src string, data []byte) error {
	tags, err := ext.Extract(ctx, src, data)
	if err != nil {
		_ = db.DeleteSource(src)
		return err
	}
	if tags == nil {
		tags = &playlist.Tags{}
	}
	return db.Put(Entry{Source: src, Checksum: storage.Checksum(data), Tags: *tags})
}
