package fsutil

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	pgerrors "github.com/matzehuels/peerguard/pkg/errors"
)

// LockFileName is created in the project directory while an evaluation runs.
const LockFileName = ".peerguard.lock"

const lockRetryDelay = 100 * time.Millisecond

// ProjectLock serializes evaluations of one project directory across
// processes.
type ProjectLock struct {
	fl *flock.Flock
}

// NewProjectLock returns an unlocked lock for projectDir.
func NewProjectLock(projectDir string) *ProjectLock {
	return &ProjectLock{fl: flock.New(filepath.Join(projectDir, LockFileName))}
}

// Path returns the lock file path.
func (l *ProjectLock) Path() string { return l.fl.Path() }

// Lock blocks until the lock is held or ctx is done. When ctx ends first the
// error carries ErrCodeProjectLocked.
func (l *ProjectLock) Lock(ctx context.Context) error {
	ok, err := l.fl.TryLockContext(ctx, lockRetryDelay)
	if ok {
		return nil
	}
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return pgerrors.Wrap(pgerrors.ErrCodeProjectLocked, err, "another evaluation holds %s", l.Path())
	}
	return fmt.Errorf("lock %s: %w", l.Path(), err)
}

// TryLock attempts the lock once without waiting.
func (l *ProjectLock) TryLock() (bool, error) {
	return l.fl.TryLock()
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *ProjectLock) Unlock() error {
	return l.fl.Unlock()
}
