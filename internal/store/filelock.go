package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/seed-run/seed/pkg/domain"
)

// lockPollInterval mirrors sessions.lockPollInterval: how often a blocked
// acquirer retries the exclusive create.
const lockPollInterval = 10 * time.Millisecond

// FileLock is an exclusive-create advisory lock on <path>.lock, used for
// the event log's single-writer guarantee. Unlike an in-process mutex this is safe across the
// process's own goroutines using it as a mutex; it is not a cross-host
// lock, matching the spec's single-master non-goal.
type FileLock struct {
	path string
}

// NewFileLock returns a lock guarding <path>.lock.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path + ".lock"}
}

// Acquire blocks until the lock is held or timeout elapses, polling at
// lockPollInterval. Returns domain.ErrLockTimeout on expiry.
func (l *FileLock) Acquire(ctx context.Context, timeout time.Duration) (func(), error) {
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			pid := os.Getpid()
			fmt.Fprintf(f, "%d\n", pid)
			f.Close()
			return func() { os.Remove(l.path) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("store: create lock %s: %w", l.path, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if time.Now().After(deadline) {
			return nil, domain.Wrap(domain.ErrLockTimeout, "acquire "+l.path, nil)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}
