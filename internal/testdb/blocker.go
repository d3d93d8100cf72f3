package testdb

import (
	"errors"
	"sync"
)

// ErrAccessBlocked is returned when a test touches the database while access is blocked.
var ErrAccessBlocked = errors.New("database access not allowed")

// Blocker gates database access. It starts blocked; each Unblock call opens
// it until the matching restore function runs.
type Blocker struct {
	mu    sync.Mutex
	depth int
}

// Unblock allows access and returns a function that undoes this call.
// The restore function is safe to call more than once.
func (b *Blocker) Unblock() (restore func()) {
	b.mu.Lock()
	b.depth++
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.depth--
			b.mu.Unlock()
		})
	}
}

// Allowed reports whether access is currently unblocked.
func (b *Blocker) Allowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depth > 0
}

// Check returns ErrAccessBlocked unless access is allowed.
func (b *Blocker) Check() error {
	if !b.Allowed() {
		return ErrAccessBlocked
	}
	return nil
}
