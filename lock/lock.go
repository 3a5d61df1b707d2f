// Package lock keeps a single recmover process running per machine.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"recmover/moverr"
)

// DefaultPath returns the machine-wide lock file location.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), "recmover.lock")
}

// Instance is an acquired single-instance lock.
type Instance struct {
	lock *flock.Flock
}

// Acquire takes the lock at path without blocking. It fails with
// moverr.ErrAlreadyRunning when another process holds it.
func Acquire(path string) (*Instance, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create lock directory: %w", err)
		}
	}
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !locked {
		return nil, moverr.Wrap(moverr.ErrAlreadyRunning, "lock held", path, nil)
	}
	return &Instance{lock: fl}, nil
}

// Release drops the lock. It is safe to call more than once.
func (i *Instance) Release() error {
	if i == nil || i.lock == nil {
		return nil
	}
	err := i.lock.Unlock()
	i.lock = nil
	return err
}
