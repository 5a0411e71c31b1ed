// Package cache contains concrete implementations of core.HistoryCache.
// The interface itself lives in the core package to centralize domain
// contracts; only the wiring layer decides whether the Redis-backed or the
// in-memory implementation is instantiated (explicit configuration, never
// runtime feature detection).
//
// Both implementations share the same behavior: histories are bounded to
// 2×MaxTurns entries (oldest dropped on write) and carry a sliding TTL that
// is refreshed by every write, not by reads.
package cache
