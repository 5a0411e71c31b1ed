package core

import "context"

// HistoryCache is the ephemeral, size- and time-bounded store of a session's
// recent turns. It is a cache, never authoritative: a miss is reported as an
// empty history, not an error, and the durable store can always reconstruct
// the same data.
//
// AppendPair is a read-modify-write and is NOT atomic. Concurrent callers on
// the same session can race; this is acceptable only because the SessionLock
// serializes all writers for a given session. If that exclusion guarantee is
// ever weakened, AppendPair must become a single atomic append-and-trim
// primitive on the backend.
type HistoryCache interface {
	// Get returns the cached history, or an empty slice on miss.
	Get(ctx context.Context, sessionID string) ([]Turn, error)

	// Set writes the history, truncating to the most recent 2×MaxTurns
	// entries first, and resets the TTL countdown.
	Set(ctx context.Context, sessionID string, history []Turn) error

	// AppendPair appends a user/assistant turn pair via Get+Set.
	AppendPair(ctx context.Context, sessionID, userMsg, assistantMsg string) error

	// Delete removes the cached history entirely.
	Delete(ctx context.Context, sessionID string) error
}

// SessionLock is a TTL'd mutual-exclusion primitive keyed by session id.
// Existence of the key is the lock; no owner token is tracked, so Release is
// an unconditional delete. The TTL is a crash-safety bound that unblocks a
// session if a holder dies before releasing, not a correctness guarantee.
type SessionLock interface {
	// Acquire atomically creates the lock key only if absent, with the
	// configured expiry. Returns true iff this call created it. A false
	// return is not an error: it signals another turn is in flight.
	Acquire(ctx context.Context, sessionID string) (bool, error)

	// Release unconditionally deletes the lock key, regardless of holder.
	Release(ctx context.Context, sessionID string) error
}

// TurnStore is the append path of the durable system of record plus the
// fallback read used when the history cache misses.
type TurnStore interface {
	// AppendTurn inserts one turn row and upserts the session row's
	// last_active_at. It never silently drops data.
	AppendTurn(ctx context.Context, sessionID string, role Role, content string, characterID *int64, characterName string) error

	// LoadRecent returns up to limit turns ascending by creation order.
	LoadRecent(ctx context.Context, sessionID string, limit int) ([]Turn, error)
}

// SessionBindingLookup resolves the character bound to a session, if any.
type SessionBindingLookup interface {
	BoundCharacter(ctx context.Context, sessionID string) (*int64, error)
}

// CharacterStore manages persona definitions.
type CharacterStore interface {
	CreateCharacter(ctx context.Context, c Character) (Character, error)
	ListCharacters(ctx context.Context) ([]Character, error)
	CharacterByID(ctx context.Context, id int64) (*Character, error)
	CharacterByName(ctx context.Context, name string) (*Character, error)
}

// SessionAdmin covers the administrative session operations. DeleteSession
// only removes durable state; callers are responsible for purging the cache
// entry and any held lock for the session.
type SessionAdmin interface {
	ListSessions(ctx context.Context, limit int) ([]SessionSummary, error)
	ListMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)
	RenameSession(ctx context.Context, sessionID, title string) error
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
	BindCharacter(ctx context.Context, sessionID string, characterID int64) error
}

// PersonaResolver resolves persona attributes by id (preferred) or name.
// A nil Character with nil error means no persona is resolvable; callers
// fall back to the generic assistant persona.
type PersonaResolver interface {
	Resolve(ctx context.Context, characterID *int64, characterName string) (*Character, error)
}
