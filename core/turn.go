package core

import "time"

// Role identifies the author of a turn.
type Role string

const (
	// RoleUser marks a turn authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a turn produced by the model.
	RoleAssistant Role = "assistant"
	// RoleSystem marks the persona/system prompt.
	RoleSystem Role = "system"
)

// Turn is one role-tagged message within a session's history. Immutable once
// created.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Message is a stored turn as read back from the durable store, including its
// creation timestamp. Used by the session message listing.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TruncateHistory drops the oldest entries so that at most maxTurns pairs
// (2×maxTurns turns) remain, preserving chronological order.
func TruncateHistory(history []Turn, maxTurns int) []Turn {
	limit := maxTurns * 2
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}
