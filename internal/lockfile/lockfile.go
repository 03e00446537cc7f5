// Package lockfile provides advisory mutual exclusion over a shared file.
//
// The protocol is a sidecar marker at <path>.lock: whichever process creates
// it exclusively holds the lock, and its existence plus modification time is
// the entire contract. Markers abandoned by crashed holders are reclaimed once
// their age passes the staleness threshold; there is no liveness detection
// beyond wall-clock age.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
)

// Suffix is appended to the protected path to form the marker path.
const Suffix = ".lock"

const (
	// DefaultTimeout bounds the total wait for an acquisition.
	DefaultTimeout = 5 * time.Second
	// DefaultStale is the marker age past which a holder is presumed crashed.
	DefaultStale = 30 * time.Second
	// DefaultPoll is the sleep between acquisition attempts.
	DefaultPoll = 50 * time.Millisecond
)

// ErrTimeout is returned when the lock was not acquired within the deadline.
// The timing-out caller created no marker, so there is nothing to clean up.
var ErrTimeout = errors.New("lock acquisition timed out")

// errHeld signals a live marker held by another process; it never escapes
// Acquire.
var errHeld = errors.New("lock held")

// Locker acquires and releases advisory locks. The zero value uses the
// package defaults; tests shrink the durations to exercise timeouts quickly.
// Locks are keyed purely by path, never by process state, so independent
// Lockers in one process contend exactly like separate processes do.
type Locker struct {
	Timeout time.Duration
	Stale   time.Duration
	Poll    time.Duration
}

// MarkerPath returns the sidecar marker path for a protected file.
func MarkerPath(path string) string {
	return path + Suffix
}

// Acquire blocks until the lock on path is held, polling at the configured
// interval. Markers older than the staleness threshold are removed and
// re-contended immediately. Returns ErrTimeout (wrapped with the path) when
// the deadline passes, the context error on cancellation, and filesystem
// errors as-is.
//
// Acquisition is not reentrant: a second Acquire for a path this process
// already holds waits out the full timeout and fails.
func (l Locker) Acquire(ctx context.Context, path string) error {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	stale := l.Stale
	if stale <= 0 {
		stale = DefaultStale
	}
	poll := l.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}

	attempts := uint(timeout / poll)
	if attempts < 1 {
		attempts = 1
	}

	marker := MarkerPath(path)
	err := retry.Do(
		func() error { return tryAcquire(marker, stale) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(poll),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errHeld) }),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, errHeld) {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, path, timeout)
	}
	return err
}

// tryAcquire makes one exclusive-create attempt, reclaiming a stale marker
// and immediately re-contending if it finds one.
func tryAcquire(marker string, stale time.Duration) error {
	err := createMarker(marker)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return err
	}

	info, err := os.Stat(marker)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Holder released between our create and stat; contend again
			// on the next poll.
			return errHeld
		}
		return err
	}

	age := time.Since(info.ModTime())
	if age <= stale {
		return errHeld
	}

	// Presumed abandoned by a crashed holder. Removal is an observable
	// transition, not a failure.
	slog.Info("reclaiming stale lock", "marker", marker, "age", age)
	if err := os.Remove(marker); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	err = createMarker(marker)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrExist):
		// Another waiter won the reclaimed slot.
		return errHeld
	default:
		return err
	}
}

// createMarker creates the zero-length marker, failing if it already exists.
func createMarker(marker string) error {
	f, err := os.OpenFile(marker, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Release removes the marker for path. A marker that is already gone is not
// an error.
func (l Locker) Release(path string) error {
	if err := os.Remove(MarkerPath(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// WithLock runs fn while holding the lock on path, releasing it on every
// exit path.
func (l Locker) WithLock(ctx context.Context, path string, fn func() error) error {
	if err := l.Acquire(ctx, path); err != nil {
		return err
	}
	defer func() {
		if err := l.Release(path); err != nil {
			slog.Warn("failed to release lock", "path", path, "error", err)
		}
	}()
	return fn()
}

// defaultLocker backs the package-level helpers.
var defaultLocker Locker

// Acquire acquires the lock on path with the default timings.
func Acquire(ctx context.Context, path string) error {
	return defaultLocker.Acquire(ctx, path)
}

// Release releases the lock on path.
func Release(path string) error {
	return defaultLocker.Release(path)
}

// WithLock runs fn while holding the lock on path with the default timings.
func WithLock(ctx context.Context, path string, fn func() error) error {
	return defaultLocker.WithLock(ctx, path, fn)
}
