package lock

import (
	"context"
	"sync"
	"time"
)

// InMemoryLock is a process-local core.SessionLock with the same
// acquire-if-absent-with-expiry semantics as the Redis implementation.
// Safe for concurrent use.
type InMemoryLock struct {
	mu      sync.Mutex
	expires map[string]time.Time
	opts    Options
	now     func() time.Time
}

// NewInMemoryLock constructs an empty in-memory session lock.
func NewInMemoryLock(optFns ...func(o *Options)) *InMemoryLock {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryLock{expires: make(map[string]time.Time), opts: opts, now: time.Now}
}

// Acquire creates the lock iff absent or expired; the check and the write
// happen under one mutex hold, so concurrent callers cannot both succeed.
func (l *InMemoryLock) Acquire(ctx context.Context, sessionID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if exp, ok := l.expires[sessionID]; ok && l.now().Before(exp) {
		return false, nil
	}
	l.expires[sessionID] = l.now().Add(l.opts.TTL)
	return true, nil
}

// Release unconditionally removes the lock, regardless of holder.
func (l *InMemoryLock) Release(ctx context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.expires, sessionID)
	return nil
}
