// Package orchestrator implements the per-turn state machine of chatmesh:
// acquire the session lock, load history (cache first, durable store on
// miss), resolve the effective persona, invoke the model, persist the
// user/assistant pair to both the cache and the store, and release the lock
// on every exit path.
//
// Concurrency model: one turn runs as one goroutine-backed task. Turns of
// different sessions execute fully in parallel; only same-session turns are
// serialized, via the session lock. Because release happens only after
// persistence or abort, a session's turn N is fully written before turn N+1
// can acquire the lock, giving read-your-writes consistency within a
// session.
//
// Two deliberate gaps are carried over from the documented design rather
// than silently fixed: a cache miss served from the durable store does not
// repopulate the cache (follow-up optimization), and there is no per-call
// model timeout beyond the transport's, so a hung upstream holds the lock
// until its own timeout or the lock TTL, whichever fires first.
package orchestrator
