// Package tags reads embedded audio metadata (ID3, MP4, FLAC, OGG).
package tags

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dhowden/tag"

	"github.com/starford/keepsake/internal/playlist"
)

// Reader extracts title, artist and cover art from raw audio bytes.
type Reader struct{}

// NewReader returns a Reader.
func NewReader() *Reader { return &Reader{} }

// Ready always reports true; the reader is linked in.
func (r *Reader) Ready() bool { return true }

// Extract parses the tags embedded in data. Files without any tags are an error.
func (r *Reader) Extract(ctx context.Context, src string, data []byte) (*playlist.Tags, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("tags: read %s: %w", src, err)
	}

	out := &playlist.Tags{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
	}
	if out.Artist == "" {
		out.Artist = strings.TrimSpace(m.AlbumArtist())
	}
	if p := m.Picture(); p != nil && len(p.Data) > 0 {
		out.Picture = &playlist.Picture{Data: p.Data, Format: pictureFormat(p)}
	}
	return out, nil
}

// pictureFormat prefers the declared MIME type and falls back to the extension.
func pictureFormat(p *tag.Picture) string {
	if mt := strings.TrimSpace(p.MIMEType); strings.Contains(mt, "/") {
		return strings.ToLower(mt)
	}
	switch ext := strings.ToLower(strings.TrimPrefix(p.Ext, ".")); ext {
	case "", "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "image/" + ext
	}
}
