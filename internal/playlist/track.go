package playlist

import (
	"encoding/base64"
	"fmt"
	"mime"
	"path"
	"strings"
)

// Placeholders used when a track's metadata cannot be read.
const (
	UnknownTitle  = "Unknown Title"
	UnknownArtist = "Unknown Artist"
)

// Track is one playable entry with its display metadata.
type Track struct {
	Source string `json:"src"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	// Cover is a data URI for the embedded artwork; empty when there is none.
	Cover string `json:"cover,omitempty"`
}

// HasCover reports whether the track carries embedded artwork.
func (t Track) HasCover() bool { return t.Cover != "" }

// Tags is what a tag-extraction capability returns for one file.
type Tags struct {
	Title   string   `json:"title,omitempty"`
	Artist  string   `json:"artist,omitempty"`
	Picture *Picture `json:"picture,omitempty"`
}

// Picture is embedded cover art in its declared format.
type Picture struct {
	Data   []byte `json:"data"`
	Format string `json:"format"`
}

// FallbackTitle derives a display title from a source location: the last path
// element with its extension removed, or UnknownTitle when nothing is left.
func FallbackTitle(src string) string {
	s := src
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	base := path.Base(s)
	if base == "." || base == "/" || base == "" {
		return UnknownTitle
	}
	name := strings.TrimSuffix(base, path.Ext(base))
	if name == "" {
		return UnknownTitle
	}
	return name
}

// fallbackTrack is the synthesized entry for a source whose fetch or tag read failed.
func fallbackTrack(src string) Track {
	return Track{
		Source: src,
		Title:  FallbackTitle(src),
		Artist: UnknownArtist,
	}
}

// trackFromTags builds a track from extracted tags, filling gaps with the fallbacks.
// A cover that cannot be encoded is dropped; the error is returned for logging.
func trackFromTags(src string, tags *Tags) (Track, error) {
	t := fallbackTrack(src)
	if tags == nil {
		return t, nil
	}
	if title := strings.TrimSpace(tags.Title); title != "" {
		t.Title = title
	}
	if artist := strings.TrimSpace(tags.Artist); artist != "" {
		t.Artist = artist
	}
	if tags.Picture == nil {
		return t, nil
	}
	cover, err := EncodeCover(tags.Picture)
	if err != nil {
		return t, err
	}
	t.Cover = cover
	return t, nil
}

// EncodeCover renders artwork as an inline data URI.
func EncodeCover(p *Picture) (string, error) {
	if p == nil || len(p.Data) == 0 {
		return "", fmt.Errorf("cover: empty picture data")
	}
	mediaType, _, err := mime.ParseMediaType(p.Format)
	if err != nil {
		return "", fmt.Errorf("cover: invalid format %q: %w", p.Format, err)
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(p.Data), nil
}
