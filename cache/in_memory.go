package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/chatmesh/core"
)

// entry pairs a stored history with its absolute expiry.
type entry struct {
	history   []core.Turn
	expiresAt time.Time
}

// InMemoryCache is a process-local core.HistoryCache with the same bounding
// and sliding-TTL semantics as the Redis implementation. Safe for concurrent
// use. Suited to tests and single-process deployments.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	opts    Options
	now     func() time.Time
}

// NewInMemoryCache constructs an empty in-memory history cache.
func NewInMemoryCache(optFns ...func(o *Options)) *InMemoryCache {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryCache{entries: make(map[string]entry), opts: opts, now: time.Now}
}

// Get returns the cached history, or an empty slice on miss or expiry.
func (c *InMemoryCache) Get(ctx context.Context, sessionID string) ([]core.Turn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[sessionID]
	if !ok || c.now().After(e.expiresAt) {
		return []core.Turn{}, nil
	}
	history := make([]core.Turn, len(e.history))
	copy(history, e.history)
	return history, nil
}

// Set stores the truncated history and resets the expiry.
func (c *InMemoryCache) Set(ctx context.Context, sessionID string, history []core.Turn) error {
	history = core.TruncateHistory(history, c.opts.MaxTurns)
	stored := make([]core.Turn, len(history))
	copy(stored, history)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sessionID] = entry{history: stored, expiresAt: c.now().Add(c.opts.TTL)}
	return nil
}

// AppendPair appends a user/assistant pair via Get+Set. Not atomic: relies
// on the session lock to serialize writers.
func (c *InMemoryCache) AppendPair(ctx context.Context, sessionID, userMsg, assistantMsg string) error {
	history, err := c.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	history = append(history,
		core.Turn{Role: core.RoleUser, Content: userMsg},
		core.Turn{Role: core.RoleAssistant, Content: assistantMsg},
	)
	return c.Set(ctx, sessionID, history)
}

// Delete removes the cached history entirely.
func (c *InMemoryCache) Delete(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
	return nil
}
