package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mrz1836/taskgraph/internal/constants"
	tgerrors "github.com/mrz1836/taskgraph/internal/errors"
	"github.com/mrz1836/taskgraph/internal/flock"
)

// fileLock wraps an advisory exclusive lock on path, retried with
// context cancellation support, grounded on the teacher's
// internal/hook.fileLock.
type fileLock struct {
	file *os.File
}

// lockWithContext opens (creating if needed) and exclusively locks path,
// retrying every constants.LockRetryInterval until constants.LockTimeout
// elapses or ctx is canceled.
func lockWithContext(ctx context.Context, path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) //#nosec G304 -- path constructed internally from the store's own directory
	if err != nil {
		return nil, fmt.Errorf("store: open lock file: %w", err)
	}

	deadline := time.Now().Add(constants.LockTimeout)
	for {
		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		default:
		}

		if err := flock.Exclusive(f.Fd()); err == nil {
			return &fileLock{file: f}, nil
		}

		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, tgerrors.Store(fmt.Sprintf("lock timed out after %s", constants.LockTimeout))
		}

		timer := time.NewTimer(constants.LockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = f.Close()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// unlock releases the lock and closes the underlying file.
func (l *fileLock) unlock() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = flock.Unlock(l.file.Fd())
	return l.file.Close()
}
