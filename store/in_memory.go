package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/chatmesh/core"
)

type storedTurn struct {
	seq           int64
	role          core.Role
	content       string
	characterID   *int64
	characterName string
	createdAt     time.Time
}

// InMemoryStore is a process-local implementation of the durable store
// contracts. It preserves insertion order per session and is safe for
// concurrent use. Best suited for tests and embedded/demo deployments.
type InMemoryStore struct {
	mu         sync.RWMutex
	seq        int64
	charSeq    int64
	sessions   map[string]*core.Session
	turns      map[string][]storedTurn
	characters map[int64]core.Character
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:   make(map[string]*core.Session),
		turns:      make(map[string][]storedTurn),
		characters: make(map[int64]core.Character),
	}
}

func (s *InMemoryStore) upsertSessionLocked(sessionID string, characterID *int64, now time.Time) *core.Session {
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &core.Session{ID: sessionID, CharacterID: characterID, CreatedAt: now}
		s.sessions[sessionID] = sess
	}
	sess.LastActiveAt = now
	return sess
}

// AppendTurn records one turn and updates the session's activity timestamp.
func (s *InMemoryStore) AppendTurn(ctx context.Context, sessionID string, role core.Role, content string, characterID *int64, characterName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.upsertSessionLocked(sessionID, characterID, now)
	s.seq++
	s.turns[sessionID] = append(s.turns[sessionID], storedTurn{
		seq:           s.seq,
		role:          role,
		content:       content,
		characterID:   characterID,
		characterName: characterName,
		createdAt:     now,
	})
	return nil
}

// LoadRecent returns the last limit turns in ascending order.
func (s *InMemoryStore) LoadRecent(ctx context.Context, sessionID string, limit int) ([]core.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.turns[sessionID]
	if limit > 0 && len(stored) > limit {
		stored = stored[len(stored)-limit:]
	}
	turns := make([]core.Turn, len(stored))
	for i, t := range stored {
		turns[i] = core.Turn{Role: t.role, Content: t.content}
	}
	return turns, nil
}

// BoundCharacter returns the session's bound character id, or nil.
func (s *InMemoryStore) BoundCharacter(ctx context.Context, sessionID string) (*int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return sess.CharacterID, nil
}

// ListSessions returns summaries ordered by last activity, newest first.
func (s *InMemoryStore) ListSessions(ctx context.Context, limit int) ([]core.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := make([]core.SessionSummary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		summary := core.SessionSummary{
			SessionID:    sess.ID,
			CharacterID:  sess.CharacterID,
			Title:        sess.Title,
			CreatedAt:    sess.CreatedAt,
			LastActiveAt: sess.LastActiveAt,
		}
		if sess.CharacterID != nil {
			if c, ok := s.characters[*sess.CharacterID]; ok {
				summary.CharacterName = c.Name
			}
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].LastActiveAt.Equal(summaries[j].LastActiveAt) {
			return summaries[i].LastActiveAt.After(summaries[j].LastActiveAt)
		}
		return summaries[i].SessionID < summaries[j].SessionID
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// ListMessages returns the session's messages in ascending order.
func (s *InMemoryStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.turns[sessionID]
	if limit > 0 && len(stored) > limit {
		stored = stored[:limit]
	}
	msgs := make([]core.Message, len(stored))
	for i, t := range stored {
		msgs[i] = core.Message{Role: t.role, Content: t.content, CreatedAt: t.createdAt}
	}
	return msgs, nil
}

// RenameSession sets the title and touches last_active_at.
func (s *InMemoryStore) RenameSession(ctx context.Context, sessionID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return core.ErrNotFound
	}
	sess.Title = title
	sess.LastActiveAt = time.Now()
	return nil
}

// DeleteSession removes the session and its turns.
func (s *InMemoryStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(s.sessions, sessionID)
	delete(s.turns, sessionID)
	return true, nil
}

// BindCharacter binds a character, creating the session if needed.
func (s *InMemoryStore) BindCharacter(ctx context.Context, sessionID string, characterID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.upsertSessionLocked(sessionID, nil, time.Now())
	sess.CharacterID = &characterID
	return nil
}

// CreateCharacter inserts a persona with a unique name.
func (s *InMemoryStore) CreateCharacter(ctx context.Context, c core.Character) (core.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.characters {
		if existing.Name == c.Name {
			return core.Character{}, core.ErrCharacterExists
		}
	}
	s.charSeq++
	c.ID = s.charSeq
	s.characters[c.ID] = c
	return c, nil
}

// ListCharacters returns personas in id order.
func (s *InMemoryStore) ListCharacters(ctx context.Context) ([]core.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chars := make([]core.Character, 0, len(s.characters))
	for _, c := range s.characters {
		chars = append(chars, c)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i].ID < chars[j].ID })
	return chars, nil
}

// CharacterByID returns the persona or nil when absent.
func (s *InMemoryStore) CharacterByID(ctx context.Context, id int64) (*core.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.characters[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// CharacterByName returns the persona or nil when absent.
func (s *InMemoryStore) CharacterByName(ctx context.Context, name string) (*core.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.characters {
		if c.Name == name {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}
