package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/chatmesh/core"
)

const historyKeyPrefix = "chat:hist:"

// Options configure history bounding and expiry for a cache implementation.
type Options struct {
	// MaxTurns bounds the history to MaxTurns user/assistant pairs.
	MaxTurns int
	// TTL is the absolute expiry applied on every write (sliding from the
	// last write, not the last read).
	TTL time.Duration
}

// DefaultOptions returns the production defaults: 20 pairs, 3 days.
func DefaultOptions() Options {
	return Options{MaxTurns: 20, TTL: 72 * time.Hour}
}

// RedisCache is a core.HistoryCache backed by a shared Redis client. Each
// session's history is stored as a single JSON array under chat:hist:<id>.
// The client is pooled and safe for concurrent use across sessions.
type RedisCache struct {
	rdb  redis.UniversalClient
	opts Options
}

// NewRedisCache creates a Redis-backed history cache.
func NewRedisCache(rdb redis.UniversalClient, optFns ...func(o *Options)) *RedisCache {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RedisCache{rdb: rdb, opts: opts}
}

func historyKey(sessionID string) string { return historyKeyPrefix + sessionID }

// Get returns the cached history. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, sessionID string) ([]core.Turn, error) {
	raw, err := c.rdb.Get(ctx, historyKey(sessionID)).Result()
	if err == redis.Nil {
		return []core.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var history []core.Turn
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		// Corrupt entries are treated as a miss; the durable store is the
		// source of truth.
		return []core.Turn{}, nil
	}
	return history, nil
}

// Set writes the history, truncated to the most recent 2×MaxTurns entries,
// and refreshes the TTL.
func (c *RedisCache) Set(ctx context.Context, sessionID string, history []core.Turn) error {
	history = core.TruncateHistory(history, c.opts.MaxTurns)
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("cache set: marshal history: %w", err)
	}
	if err := c.rdb.Set(ctx, historyKey(sessionID), data, c.opts.TTL).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// AppendPair appends a user/assistant pair via Get+Set. Not atomic: relies
// on the session lock to serialize writers.
func (c *RedisCache) AppendPair(ctx context.Context, sessionID, userMsg, assistantMsg string) error {
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
func (c *RedisCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.rdb.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
