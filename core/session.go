package core

import "time"

// Session is a durable conversational identity correlating a sequence of
// turns and an optional persona binding. The id is opaque and supplied by
// the client (or generated at explicit creation).
type Session struct {
	ID           string    `json:"session_id"`
	CharacterID  *int64    `json:"character_id,omitempty"`
	Title        string    `json:"title,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// SessionSummary is the listing projection of a session, including the
// resolved character name.
type SessionSummary struct {
	SessionID     string    `json:"session_id"`
	CharacterID   *int64    `json:"character_id,omitempty"`
	CharacterName string    `json:"character_name,omitempty"`
	Title         string    `json:"title,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastActiveAt  time.Time `json:"last_active_at"`
}

// Character is a persona definition rendered into the system prompt.
// All attributes except Name are optional.
type Character struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Background   string `json:"background,omitempty"`
	Personality  string `json:"personality,omitempty"`
	Skills       string `json:"skills,omitempty"`
	CurrentStyle string `json:"current_playstyle,omitempty"`
}
