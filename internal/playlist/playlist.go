package playlist

import (
	"context"
	"sync"
)

// LoadState tracks a playlist's progress from loading to settled.
type LoadState int

const (
	Loading LoadState = iota
	Ready
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name.
func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a point-in-time view of a playlist.
type Snapshot struct {
	State   LoadState `json:"state"`
	Loading bool      `json:"loading"`
	Tracks  []Track   `json:"tracks"`
	Error   string    `json:"error,omitempty"`
}

// Playlist holds the eventual result of one load. It settles exactly once.
type Playlist struct {
	mu     sync.RWMutex
	state  LoadState
	tracks []Track
	err    error
	done   chan struct{}
	once   sync.Once
}

// New returns a playlist in the Loading state.
func New() *Playlist {
	return &Playlist{done: make(chan struct{})}
}

// Resolve runs the loader and settles the playlist with its outcome. Only the
// first call has an effect; later calls return the settled error.
func (p *Playlist) Resolve(ctx context.Context, l *Loader, sources []string) error {
	p.once.Do(func() {
		tracks, err := l.Load(ctx, sources)
		p.settle(tracks, err)
	})
	return p.Err()
}

func (p *Playlist) settle(tracks []Track, err error) {
	p.mu.Lock()
	if err != nil {
		p.state = Failed
		p.tracks = []Track{}
		p.err = err
	} else {
		p.state = Ready
		p.tracks = tracks
	}
	p.mu.Unlock()
	close(p.done)
}

// Done is closed once the playlist has settled.
func (p *Playlist) Done() <-chan struct{} { return p.done }

// Err returns the load failure, if any.
func (p *Playlist) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// State returns the current load state.
func (p *Playlist) State() LoadState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Snapshot copies the current state and tracks.
func (p *Playlist) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Snapshot{
		State:   p.state,
		Loading: p.state == Loading,
		Tracks:  append([]Track{}, p.tracks...),
	}
	if p.err != nil {
		s.Error = p.err.Error()
	}
	return s
}
