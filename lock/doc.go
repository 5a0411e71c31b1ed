// Package lock contains concrete implementations of core.SessionLock, the
// TTL'd mutual-exclusion primitive that serializes turn processing per
// session. The Redis implementation uses a single SET NX EX, never two
// separate operations, so two callers can never both observe "absent".
//
// The lock carries no owner token: Release is an unconditional delete. A
// stale caller (for example a retried request that outlived its own
// timeout) can therefore release a lock acquired by a different,
// still-running caller for the same session. This mirrors the documented
// design and is flagged as a correctness risk rather than silently adding
// ownership semantics.
package lock
