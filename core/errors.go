package core

import "errors"

// Error taxonomy shared across layers. The server boundary maps these to
// HTTP statuses; the orchestrator wraps collaborator failures with them so
// callers can branch with errors.Is without depending on backends.
var (
	// ErrSessionRequired rejects a turn with an empty session id before any
	// side effect occurs.
	ErrSessionRequired = errors.New("session_id required")

	// ErrTurnInFlight signals that the session lock is already held: another
	// turn for the same session is being processed. Callers reject the
	// request without queueing or retrying.
	ErrTurnInFlight = errors.New("another turn for this session is in flight")

	// ErrUpstream wraps model call failures (non-success status or
	// unparsable payload). No persistence has occurred when it surfaces.
	ErrUpstream = errors.New("llm upstream error")

	// ErrPersistence wraps cache or store write failures after the model
	// call. The two systems share no transaction, so they may be left
	// inconsistent with each other when this surfaces.
	ErrPersistence = errors.New("persistence error")

	// ErrNotFound is returned when a referenced session or character does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrCharacterExists rejects creating a character whose name is taken.
	ErrCharacterExists = errors.New("character name already exists")
)
