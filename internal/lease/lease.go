package lease

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrHeld reports that another cycle currently holds the lease.
var ErrHeld = errors.New("lease already held")

// Lease guards a shared resource with a non-blocking file lock.
type Lease struct {
	path string

	mu   sync.Mutex
	held bool
	lock *flock.Flock
}

// New creates a lease backed by a lock file in the given directory.
func New(dir, name string) *Lease {
	path := filepath.Join(dir, name)
	return &Lease{path: path, lock: flock.New(path)}
}

// Path returns the lock file location.
func (l *Lease) Path() string {
	return l.path
}

// TryAcquire attempts to take the lease without blocking. On success it
// returns a release function that is safe to call exactly once, typically
// deferred so the lease is released on every exit path. When the lease is
// already held it returns ErrHeld; callers must skip rather than queue.
func (l *Lease) TryAcquire() (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// flock's TryLock reports success for a handle that already holds the
	// lock, so the file lock alone cannot fence two cycles inside one
	// process. Track held state alongside it.
	if l.held {
		return nil, ErrHeld
	}

	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", l.path, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	l.held = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			_ = l.lock.Unlock()
			l.held = false
		})
	}
	return release, nil
}
