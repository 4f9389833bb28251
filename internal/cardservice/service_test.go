package cardservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/keepsake/internal/apperr"
	"github.com/starford/keepsake/internal/keepsake"
	"github.com/starford/keepsake/internal/lock"
	"github.com/starford/keepsake/internal/logging"
	"github.com/starford/keepsake/internal/playlist"
	"github.com/starford/keepsake/internal/session"
)

// scheduler captures delayed unlocks so tests fire them explicitly.
type scheduler struct {
	pending []func()
}

func (s *scheduler) AfterFunc(_ time.Duration, f func()) lock.Timer {
	s.pending = append(s.pending, f)
	return time.NewTimer(time.Hour)
}

func (s *scheduler) fireAll() {
	for _, f := range s.pending {
		f()
	}
	s.pending = nil
}

func newTestService(t *testing.T) (*Service, *scheduler) {
	t.Helper()
	sc := &scheduler{}
	i := 0
	digits := []int{1, 0, 2, 2}
	reg := session.NewRegistry(session.Config{Target: lock.Combination{1, 0, 2, 3}},
		session.WithLogger(logging.Discard()),
		session.WithLockOptions(
			lock.WithRand(func(n int) int { d := digits[i%4]; i++; return d % n }),
			lock.WithAfterFunc(sc.AfterFunc),
		),
	)
	t.Cleanup(reg.Close)

	ks, err := keepsake.NewCollection(keepsake.Defaults())
	if err != nil {
		t.Fatal(err)
	}
	return NewService(reg, playlist.New(), ks), sc
}

func TestLockFlow(t *testing.T) {
	svc, sc := newTestService(t)
	ctx := context.Background()

	id, created, err := svc.EnsureSession(ctx, "")
	if err != nil || !created {
		t.Fatalf("EnsureSession = %q %v %v", id, created, err)
	}

	st, err := svc.LockStatus(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if st.Combination != "1022" || st.State != lock.Locked || len(st.Digits) != 4 {
		t.Fatalf("status = %+v", st)
	}

	if _, err := svc.Keepsakes(ctx, id); !errors.Is(err, apperr.ErrLocked) {
		t.Errorf("keepsakes while locked err = %v", err)
	}

	st, err = svc.Turn(ctx, id, 3, session.Up)
	if err != nil {
		t.Fatal(err)
	}
	if st.State != lock.Unlocking || st.Combination != "1023" {
		t.Fatalf("status after turn = %+v", st)
	}
	if _, err := svc.Keepsakes(ctx, id); !errors.Is(err, apperr.ErrLocked) {
		t.Errorf("keepsakes while unlocking err = %v", err)
	}

	sc.fireAll()
	if st, _ = svc.LockStatus(ctx, id); st.State != lock.Unlocked {
		t.Fatalf("state after delay = %v", st.State)
	}

	// Turning an open lock is a no-op, not an error.
	st, err = svc.Turn(ctx, id, 0, session.Down)
	if err != nil || st.Combination != "1023" {
		t.Errorf("turn after unlock = %+v, %v", st, err)
	}

	items, err := svc.Keepsakes(ctx, id)
	if err != nil || len(items) == 0 {
		t.Fatalf("Keepsakes = %v, %v", items, err)
	}
	k, err := svc.Keepsake(ctx, id, "letter")
	if err != nil || k.Kind != keepsake.KindLetter {
		t.Errorf("Keepsake = %+v, %v", k, err)
	}
}

func TestUnknownSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.LockStatus(ctx, "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("LockStatus err = %v", err)
	}
	if _, err := svc.Turn(ctx, "ghost", 0, session.Up); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Turn err = %v", err)
	}
	if _, err := svc.Keepsake(ctx, "ghost", "letter"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Keepsake err = %v", err)
	}
}

func TestPlaylistSnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	if s := svc.Playlist(context.Background()); !s.Loading || s.State != playlist.Loading {
		t.Errorf("snapshot = %+v", s)
	}
}
