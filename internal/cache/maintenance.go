package cache

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Maintainer is an advisory lock that lets a single process own cache sync
// and watching when several commands share one cache file.
type Maintainer struct {
	lock *flock.Flock
}

// AcquireMaintainer tries to take the maintenance lock beside dbPath. ok is
// false when another process already holds it.
func AcquireMaintainer(dbPath string) (m *Maintainer, ok bool, err error) {
	l := flock.New(dbPath + ".lock")
	ok, err = l.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Maintainer{lock: l}, true, nil
}

// Release gives up the lock.
func (m *Maintainer) Release() error {
	return m.lock.Unlock()
}
