// Package session gives every visitor their own lock, identified by a random
// session ID, and disposes locks that have gone idle.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/starford/keepsake/internal/apperr"
	"github.com/starford/keepsake/internal/lock"
)

// Direction is which way a tumbler turns.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection validates a direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Up, Down:
		return d, nil
	default:
		return "", fmt.Errorf("%w: direction must be up or down, got %q", apperr.ErrInvalidArgument, s)
	}
}

// Session is one visitor's lock.
type Session struct {
	ID      string
	Lock    *lock.Controller
	limiter *rate.Limiter

	mu       sync.Mutex
	lastSeen time.Time
}

// Turn moves the tumbler at pos one step in dir. Turns beyond the session's
// rate are rejected with apperr.ErrRateLimited.
func (s *Session) Turn(pos int, dir Direction) error {
	if pos < 0 || pos >= lock.Digits {
		return fmt.Errorf("%w: position must be in [0,%d), got %d", apperr.ErrInvalidArgument, lock.Digits, pos)
	}
	if !s.limiter.Allow() {
		return apperr.ErrRateLimited
	}
	switch dir {
	case Up:
		s.Lock.Increment(pos)
	case Down:
		s.Lock.Decrement(pos)
	default:
		return fmt.Errorf("%w: unknown direction %q", apperr.ErrInvalidArgument, dir)
	}
	return nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Config controls new sessions.
type Config struct {
	Target         lock.Combination
	UnlockDelay    time.Duration
	TTL            time.Duration
	TurnsPerSecond float64
	Burst          int

	// MaxSessions caps live sessions; zero means unbounded.
	MaxSessions int
	// CreatesPerSecond limits how fast new sessions are issued across all
	// visitors; zero means unlimited.
	CreatesPerSecond float64
	CreateBurst      int
}

// NotifyFunc is called when a session's lock changes state.
type NotifyFunc func(sessionID string, state lock.State)

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithNotify registers a callback for lock transitions.
func WithNotify(fn NotifyFunc) Option {
	return func(r *Registry) { r.notify = fn }
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithLockOptions appends options applied to every new controller.
func WithLockOptions(opts ...lock.Option) Option {
	return func(r *Registry) { r.lockOpts = append(r.lockOpts, opts...) }
}

// Registry owns all live sessions. It is safe for concurrent use.
type Registry struct {
	cfg      Config
	now      func() time.Time
	notify   NotifyFunc
	logger   *slog.Logger
	lockOpts []lock.Option
	creates  *rate.Limiter

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewRegistry returns an empty registry.
func NewRegistry(cfg Config, opts ...Option) *Registry {
	r := &Registry{
		cfg:      cfg,
		now:      time.Now,
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
	}
	if cfg.CreatesPerSecond > 0 {
		r.creates = rate.NewLimiter(rate.Limit(cfg.CreatesPerSecond), max(cfg.CreateBurst, 1))
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the session for id, creating a fresh one with a new ID
// when id is empty or unknown. created reports which happened. A full registry
// first evicts idle sessions and then fails with apperr.ErrUnavailable; issuing
// sessions faster than the creation limit fails with apperr.ErrRateLimited.
func (r *Registry) GetOrCreate(id string) (s *Session, created bool, err error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false, fmt.Errorf("%w: session registry closed", apperr.ErrUnavailable)
	}
	if existing, ok := r.sessions[id]; ok && id != "" {
		existing.touch(now)
		return existing, false, nil
	}

	if r.cfg.MaxSessions > 0 && len(r.sessions) >= r.cfg.MaxSessions {
		if r.cfg.TTL > 0 {
			for _, stale := range r.removeIdleLocked(now.Add(-r.cfg.TTL)) {
				stale.Lock.Dispose()
			}
		}
		if len(r.sessions) >= r.cfg.MaxSessions {
			r.logger.Warn("session: registry full", slog.Int("live", len(r.sessions)))
			return nil, false, fmt.Errorf("%w: session limit of %d reached", apperr.ErrUnavailable, r.cfg.MaxSessions)
		}
	}
	if r.creates != nil && !r.creates.Allow() {
		return nil, false, fmt.Errorf("%w: too many new sessions", apperr.ErrRateLimited)
	}

	s = r.newSession(uuid.NewString(), now)
	r.sessions[s.ID] = s
	r.logger.Debug("session: created", slog.String("session", s.ID))
	return s, true, nil
}

func (r *Registry) newSession(id string, now time.Time) *Session {
	opts := append([]lock.Option{}, r.lockOpts...)
	if r.cfg.UnlockDelay > 0 {
		opts = append(opts, lock.WithDelay(r.cfg.UnlockDelay))
	}
	if r.notify != nil {
		notify := r.notify
		opts = append(opts,
			lock.OnUnlocking(func() { notify(id, lock.Unlocking) }),
			lock.OnUnlocked(func() { notify(id, lock.Unlocked) }),
		)
	}

	limit := rate.Inf
	if r.cfg.TurnsPerSecond > 0 {
		limit = rate.Limit(r.cfg.TurnsPerSecond)
	}
	return &Session{
		ID:       id,
		Lock:     lock.New(r.cfg.Target, opts...),
		limiter:  rate.NewLimiter(limit, max(r.cfg.Burst, 1)),
		lastSeen: now,
	}
}

// Get returns the session for id without creating one.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: session %q", apperr.ErrNotFound, id)
	}
	s.touch(r.now())
	return s, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep disposes and removes sessions idle for longer than the TTL. It
// returns the number evicted.
func (r *Registry) Sweep() int {
	if r.cfg.TTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.cfg.TTL)

	r.mu.Lock()
	stale := r.removeIdleLocked(cutoff)
	r.mu.Unlock()

	for _, s := range stale {
		s.Lock.Dispose()
	}
	return len(stale)
}

// removeIdleLocked drops sessions last seen before cutoff. r.mu must be held.
func (r *Registry) removeIdleLocked(cutoff time.Time) []*Session {
	var stale []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
			r.logger.Debug("session: evicted", slog.String("session", s.ID))
		}
	}
	return stale
}

// Run sweeps every interval until ctx is cancelled, then closes the registry.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Close()
			return nil
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("session: swept idle sessions", slog.Int("evicted", n), slog.Int("live", r.Len()))
			}
		}
	}
}

// Close disposes every session. Later GetOrCreate calls fail.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.closed = true
	r.mu.Unlock()

	for _, s := range all {
		s.Lock.Dispose()
	}
}
