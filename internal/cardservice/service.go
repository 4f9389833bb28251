// Package cardservice coordinates lock sessions, the playlist and keepsakes
// for the card's front ends.
package cardservice

import (
	"context"

	"github.com/starford/keepsake/internal/keepsake"
	"github.com/starford/keepsake/internal/lock"
	"github.com/starford/keepsake/internal/playlist"
	"github.com/starford/keepsake/internal/session"
)

// LockStatus is a visitor's view of their lock.
type LockStatus struct {
	Session     string     `json:"session"`
	Combination string     `json:"combination"`
	Digits      []int      `json:"digits"`
	State       lock.State `json:"state"`
}

// Service ties the card's parts together.
type Service struct {
	sessions  *session.Registry
	playlist  *playlist.Playlist
	keepsakes *keepsake.Collection
}

// NewService creates a new card service.
func NewService(sessions *session.Registry, pl *playlist.Playlist, ks *keepsake.Collection) *Service {
	return &Service{sessions: sessions, playlist: pl, keepsakes: ks}
}

// EnsureSession returns id when it names a live session, or the ID of a new
// one otherwise.
func (s *Service) EnsureSession(_ context.Context, id string) (string, bool, error) {
	sess, created, err := s.sessions.GetOrCreate(id)
	if err != nil {
		return "", false, err
	}
	return sess.ID, created, nil
}

// LockStatus reports the session's combination and state.
func (s *Service) LockStatus(_ context.Context, sessionID string) (*LockStatus, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return statusOf(sess), nil
}

// Turn moves one tumbler and returns the resulting status. Turning a lock
// that is no longer LOCKED succeeds without effect.
func (s *Service) Turn(_ context.Context, sessionID string, pos int, dir session.Direction) (*LockStatus, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Turn(pos, dir); err != nil {
		return nil, err
	}
	return statusOf(sess), nil
}

// Playlist returns the current playlist snapshot.
func (s *Service) Playlist(_ context.Context) playlist.Snapshot {
	return s.playlist.Snapshot()
}

// Keepsakes returns every keepsake once the session's lock is open.
func (s *Service) Keepsakes(_ context.Context, sessionID string) ([]keepsake.Keepsake, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.keepsakes.Reveal(sess.Lock.State())
}

// Keepsake returns one keepsake once the session's lock is open.
func (s *Service) Keepsake(_ context.Context, sessionID, id string) (keepsake.Keepsake, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return keepsake.Keepsake{}, err
	}
	return s.keepsakes.Get(id, sess.Lock.State())
}

func statusOf(sess *session.Session) *LockStatus {
	combo := sess.Lock.Combination()
	return &LockStatus{
		Session:     sess.ID,
		Combination: combo.String(),
		Digits:      combo[:],
		State:       sess.Lock.State(),
	}
}
