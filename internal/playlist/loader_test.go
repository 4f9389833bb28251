package playlist

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/keepsake/internal/apperr"
	"github.com/starford/keepsake/internal/logging"
)

type fakeFetcher struct {
	fail  map[string]bool
	delay map[string]time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	if d := f.delay[src]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail[src] {
		return nil, errors.New("connection refused")
	}
	return []byte("audio:" + src), nil
}

// fakeExtractor derives tags from the fetched payload so each track reflects its own source.
type fakeExtractor struct {
	readyAfter int32 // number of Ready calls that report false first
	calls      atomic.Int32
	fail       map[string]bool
	pictures   map[string]*Picture
}

func (e *fakeExtractor) Ready() bool {
	return e.calls.Add(1) > e.readyAfter
}

func (e *fakeExtractor) Extract(_ context.Context, src string, data []byte) (*Tags, error) {
	if e.fail[src] {
		return nil, errors.New("no tags")
	}
	name := strings.TrimPrefix(string(data), "audio:/")
	return &Tags{
		Title:   "Title " + name,
		Artist:  "Artist " + name,
		Picture: e.pictures[src],
	}, nil
}

var sources = []string{"/a.mp3", "/b.mp3", "/c.mp3"}

func newTestLoader(f Fetcher, e Extractor, opts ...LoaderOption) *Loader {
	opts = append([]LoaderOption{WithLogger(logging.Discard()), WithPoll(time.Millisecond, 5)}, opts...)
	return NewLoader(f, e, opts...)
}

func TestLoadPreservesOrder(t *testing.T) {
	// c finishes first and a last; order must still be a, b, c.
	f := &fakeFetcher{delay: map[string]time.Duration{"/a.mp3": 30 * time.Millisecond, "/b.mp3": 10 * time.Millisecond}}
	l := newTestLoader(f, &fakeExtractor{})

	tracks, err := l.Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("got %d tracks, want 3", len(tracks))
	}
	for i, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		if tracks[i].Source != sources[i] {
			t.Errorf("tracks[%d].Source = %q", i, tracks[i].Source)
		}
		if tracks[i].Title != "Title "+name || tracks[i].Artist != "Artist "+name {
			t.Errorf("tracks[%d] = %+v", i, tracks[i])
		}
	}
}

func TestLoadFetchFailureFallsBack(t *testing.T) {
	f := &fakeFetcher{fail: map[string]bool{"/b.mp3": true}}
	l := newTestLoader(f, &fakeExtractor{})

	tracks, err := l.Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("got %d tracks, want 3", len(tracks))
	}
	want := Track{Source: "/b.mp3", Title: "b", Artist: UnknownArtist}
	if tracks[1] != want {
		t.Errorf("tracks[1] = %+v, want %+v", tracks[1], want)
	}
	if tracks[0].Title != "Title a.mp3" || tracks[2].Title != "Title c.mp3" {
		t.Errorf("neighbours affected: %+v %+v", tracks[0], tracks[2])
	}
}

func TestLoadExtractionFailureFallsBack(t *testing.T) {
	e := &fakeExtractor{fail: map[string]bool{"/c.mp3": true}}
	l := newTestLoader(&fakeFetcher{}, e)

	tracks, err := l.Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Track{Source: "/c.mp3", Title: "c", Artist: UnknownArtist}
	if tracks[2] != want {
		t.Errorf("tracks[2] = %+v, want %+v", tracks[2], want)
	}
}

func TestLoadCapabilityTimeout(t *testing.T) {
	e := &fakeExtractor{readyAfter: 1 << 30}
	l := newTestLoader(&fakeFetcher{}, e, WithPoll(time.Millisecond, 3))

	done := make(chan struct{})
	var (
		tracks []Track
		err    error
	)
	go func() {
		tracks, err = l.Load(context.Background(), sources)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Load did not return")
	}
	if !errors.Is(err, ErrCapabilityUnavailable) || !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrCapabilityUnavailable", err)
	}
	if len(tracks) != 0 {
		t.Errorf("got %d tracks, want none", len(tracks))
	}
	if got := e.calls.Load(); got != 3 {
		t.Errorf("Ready checked %d times, want 3", got)
	}
}

func TestLoadWaitsForLateCapability(t *testing.T) {
	e := &fakeExtractor{readyAfter: 2}
	l := newTestLoader(&fakeFetcher{}, e)

	tracks, err := l.Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("got %d tracks", len(tracks))
	}
	if got := e.calls.Load(); got != 3 {
		t.Errorf("Ready checked %d times, want 3", got)
	}
}

func TestLoadCancelledWhileWaiting(t *testing.T) {
	e := &fakeExtractor{readyAfter: 1 << 30}
	l := NewLoader(&fakeFetcher{}, e, WithLogger(logging.Discard()), WithPoll(time.Hour, 20))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Load(ctx, sources); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLoadIdempotent(t *testing.T) {
	e := &fakeExtractor{pictures: map[string]*Picture{"/a.mp3": {Data: []byte{0xff, 0xd8}, Format: "image/jpeg"}}}
	l := newTestLoader(&fakeFetcher{}, e)

	first, err := l.Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("first Load: %v", err)
	}
	second, err := l.Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("loads differ:\n%+v\n%+v", first, second)
	}
}

func TestLoadCoverFailureKeepsTags(t *testing.T) {
	e := &fakeExtractor{pictures: map[string]*Picture{
		"/a.mp3": {Data: []byte{0x89, 0x50}, Format: "image/png"},
		"/b.mp3": {Data: []byte{0x01}, Format: "not a mime type;;"},
	}}
	l := newTestLoader(&fakeFetcher{}, e)

	tracks, err := l.Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tracks[0].Cover != "data:image/png;base64,iVA=" {
		t.Errorf("tracks[0].Cover = %q", tracks[0].Cover)
	}
	if tracks[1].HasCover() {
		t.Errorf("tracks[1] has cover %q, want none", tracks[1].Cover)
	}
	if tracks[1].Title != "Title b.mp3" || tracks[1].Artist != "Artist b.mp3" {
		t.Errorf("tracks[1] lost its tags: %+v", tracks[1])
	}
}

func TestLoadFetchTimeout(t *testing.T) {
	f := &fakeFetcher{delay: map[string]time.Duration{"/b.mp3": time.Hour}}
	l := newTestLoader(f, &fakeExtractor{}, WithFetchTimeout(20*time.Millisecond))

	tracks, err := l.Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tracks[1].Title != "b" || tracks[1].Artist != UnknownArtist {
		t.Errorf("tracks[1] = %+v, want fallback", tracks[1])
	}
}

func TestLoadEmpty(t *testing.T) {
	tracks, err := newTestLoader(&fakeFetcher{}, &fakeExtractor{}).Load(context.Background(), nil)
	if err != nil || len(tracks) != 0 {
		t.Errorf("Load(nil) = %v, %v", tracks, err)
	}
}

func TestFallbackTitle(t *testing.T) {
	tests := map[string]string{
		"/b.mp3":                     "b",
		"/music/Perfect Day.flac":    "Perfect Day",
		"https://x.test/a/c.mp3?v=2": "c",
		"noext":                      "noext",
		"":                           UnknownTitle,
		"/":                          UnknownTitle,
		"/.mp3":                      UnknownTitle,
	}
	for in, want := range tests {
		if got := FallbackTitle(in); got != want {
			t.Errorf("FallbackTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTrackFromTagsFillsGaps(t *testing.T) {
	got, err := trackFromTags("/x/song.mp3", &Tags{Title: "  ", Artist: "Someone"})
	if err != nil {
		t.Fatal(err)
	}
	want := Track{Source: "/x/song.mp3", Title: "song", Artist: "Someone"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestEncodeCoverRejectsEmpty(t *testing.T) {
	if _, err := EncodeCover(&Picture{Format: "image/jpeg"}); err == nil {
		t.Error("expected error for empty data")
	}
	if _, err := EncodeCover(nil); err == nil {
		t.Error("expected error for nil picture")
	}
}

func TestPlaylistResolvesOnce(t *testing.T) {
	p := New()
	if s := p.Snapshot(); s.State != Loading || !s.Loading {
		t.Fatalf("initial snapshot = %+v", s)
	}

	l := newTestLoader(&fakeFetcher{}, &fakeExtractor{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Resolve(context.Background(), l, sources); err != nil {
				t.Errorf("Resolve: %v", err)
			}
		}()
	}
	wg.Wait()

	select {
	case <-p.Done():
	default:
		t.Fatal("Done not closed after Resolve")
	}
	s := p.Snapshot()
	if s.State != Ready || s.Loading || len(s.Tracks) != 3 {
		t.Errorf("snapshot = %+v", s)
	}

	// A later resolve with different sources has no effect.
	_ = p.Resolve(context.Background(), l, []string{"/z.mp3"})
	if got := p.Snapshot(); len(got.Tracks) != 3 {
		t.Errorf("playlist re-settled: %+v", got)
	}
}

func TestPlaylistFailed(t *testing.T) {
	p := New()
	l := newTestLoader(&fakeFetcher{}, &fakeExtractor{readyAfter: 1 << 30}, WithPoll(time.Millisecond, 2))

	err := p.Resolve(context.Background(), l, sources)
	if !errors.Is(err, ErrCapabilityUnavailable) {
		t.Fatalf("Resolve err = %v", err)
	}
	s := p.Snapshot()
	if s.State != Failed || s.Loading || len(s.Tracks) != 0 || s.Error == "" {
		t.Errorf("snapshot = %+v", s)
	}
	if s.Tracks == nil {
		t.Error("failed snapshot should carry an empty, non-nil track list")
	}
}

func TestCursor(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(int, int) int
		cur, n int
		want   int
	}{
		{"next from none", Next, None, 3, 0},
		{"next", Next, 0, 3, 1},
		{"next wraps", Next, 2, 3, 0},
		{"prev from none", Prev, None, 3, 0},
		{"prev", Prev, 2, 3, 1},
		{"prev wraps", Prev, 0, 3, 2},
		{"next empty", Next, 0, 0, None},
		{"prev empty", Prev, None, 0, None},
		{"single", Prev, 0, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.cur, tt.n); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}
