package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "chat:lock:"

// Options configure the lock expiry.
type Options struct {
	// TTL is the crash-safety bound after which an unreleased lock
	// self-expires. It must exceed the worst-case model-response latency or
	// legitimate in-flight turns will be pre-empted.
	TTL time.Duration
}

// DefaultOptions returns the production default of 60 seconds.
func DefaultOptions() Options {
	return Options{TTL: 60 * time.Second}
}

// RedisLock is a core.SessionLock backed by a shared Redis client. The lock
// key lives in the same logical keyspace as the history cache, distinguished
// by its prefix.
type RedisLock struct {
	rdb  redis.UniversalClient
	opts Options
}

// NewRedisLock creates a Redis-backed session lock.
func NewRedisLock(rdb redis.UniversalClient, optFns ...func(o *Options)) *RedisLock {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RedisLock{rdb: rdb, opts: opts}
}

func lockKey(sessionID string) string { return lockKeyPrefix + sessionID }

// Acquire creates the lock key iff absent, with expiry, in one atomic SET NX.
func (l *RedisLock) Acquire(ctx context.Context, sessionID string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, lockKey(sessionID), "1", l.opts.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("lock acquire: %w", err)
	}
	return ok, nil
}

// Release unconditionally deletes the lock key.
func (l *RedisLock) Release(ctx context.Context, sessionID string) error {
	if err := l.rdb.Del(ctx, lockKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("lock release: %w", err)
	}
	return nil
}
