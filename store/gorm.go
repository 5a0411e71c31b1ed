package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hupe1980/chatmesh/core"
)

// characterRow maps the character_info table.
type characterRow struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	Name             string `gorm:"size:255;not null;index"`
	Background       string `gorm:"type:text"`
	Personality      string `gorm:"type:text"`
	Skills           string `gorm:"type:text"`
	CurrentPlaystyle string `gorm:"type:text"`
}

func (characterRow) TableName() string { return "character_info" }

// sessionRow maps the chat_sessions table. The id is the client-supplied
// opaque session id, not a surrogate key.
type sessionRow struct {
	ID           string `gorm:"primaryKey;size:255"`
	CharacterID  *int64
	Title        string    `gorm:"size:128"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime"`
	LastActiveAt time.Time `gorm:"not null"`
}

func (sessionRow) TableName() string { return "chat_sessions" }

// turnRow maps the chat_history table. character_name is kept denormalized
// for compatibility with pre-binding data.
type turnRow struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	SessionID     string `gorm:"size:255;not null;index"`
	CharacterName string `gorm:"size:255;not null"`
	Message       string `gorm:"type:text;not null"`
	CreatedAt     time.Time
	Role          string `gorm:"size:16"`
	CharacterID   *int64
}

func (turnRow) TableName() string { return "chat_history" }

// GormStore is the Postgres-backed system of record. The *gorm.DB handle is
// pooled and safe for concurrent use across sessions; no additional locking
// is layered on top of the session lock.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open GORM handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the three tables. The schema is normally
// managed externally; this is opt-in for fresh deployments.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&characterRow{}, &sessionRow{}, &turnRow{})
}

// AppendTurn inserts one turn row and upserts the session's last_active_at
// in a single transaction.
func (s *GormStore) AppendTurn(ctx context.Context, sessionID string, role core.Role, content string, characterID *int64, characterName string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		sess := sessionRow{ID: sessionID, CharacterID: characterID, LastActiveAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"last_active_at": now}),
		}).Create(&sess).Error; err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		row := turnRow{
			SessionID:     sessionID,
			CharacterName: characterName,
			Message:       content,
			Role:          string(role),
			CharacterID:   characterID,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store append turn: %w", err)
	}
	return nil
}

// LoadRecent returns the last limit turns in ascending creation order.
func (s *GormStore) LoadRecent(ctx context.Context, sessionID string, limit int) ([]core.Turn, error) {
	var rows []turnRow
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store load recent: %w", err)
	}
	// Newest-first query so LIMIT keeps the most recent context; reverse to
	// chronological order for prompt assembly.
	turns := make([]core.Turn, len(rows))
	for i, r := range rows {
		turns[len(rows)-1-i] = core.Turn{Role: core.Role(r.Role), Content: r.Message}
	}
	return turns, nil
}

// BoundCharacter returns the character bound to the session, or nil.
func (s *GormStore) BoundCharacter(ctx context.Context, sessionID string) (*int64, error) {
	var sess sessionRow
	err := s.db.WithContext(ctx).First(&sess, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store bound character: %w", err)
	}
	return sess.CharacterID, nil
}

// ListSessions returns sessions ordered by last activity, newest first,
// with the bound character's name resolved.
func (s *GormStore) ListSessions(ctx context.Context, limit int) ([]core.SessionSummary, error) {
	var rows []struct {
		sessionRow
		CharacterName string
	}
	err := s.db.WithContext(ctx).
		Table("chat_sessions").
		Select("chat_sessions.*, character_info.name AS character_name").
		Joins("LEFT JOIN character_info ON character_info.id = chat_sessions.character_id").
		Order("chat_sessions.last_active_at DESC, chat_sessions.id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store list sessions: %w", err)
	}
	summaries := make([]core.SessionSummary, len(rows))
	for i, r := range rows {
		summaries[i] = core.SessionSummary{
			SessionID:     r.ID,
			CharacterID:   r.CharacterID,
			CharacterName: r.CharacterName,
			Title:         r.Title,
			CreatedAt:     r.CreatedAt,
			LastActiveAt:  r.LastActiveAt,
		}
	}
	return summaries, nil
}

// ListMessages returns a session's messages in ascending creation order.
func (s *GormStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]core.Message, error) {
	var rows []turnRow
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store list messages: %w", err)
	}
	msgs := make([]core.Message, len(rows))
	for i, r := range rows {
		msgs[i] = core.Message{Role: core.Role(r.Role), Content: r.Message, CreatedAt: r.CreatedAt}
	}
	return msgs, nil
}

// RenameSession sets the title and touches last_active_at.
func (s *GormStore) RenameSession(ctx context.Context, sessionID, title string) error {
	res := s.db.WithContext(ctx).
		Model(&sessionRow{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{"title": title, "last_active_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("store rename session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("store rename session %q: %w", sessionID, core.ErrNotFound)
	}
	return nil
}

// DeleteSession removes the session and its turns. Returns false when the
// session did not exist. Cache entry and lock purging is the caller's job.
func (s *GormStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&sessionRow{}, "id = ?", sessionID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		// Explicit cascade; does not rely on the FK being present.
		return tx.Delete(&turnRow{}, "session_id = ?", sessionID).Error
	})
	if err != nil {
		return false, fmt.Errorf("store delete session: %w", err)
	}
	return deleted, nil
}

// BindCharacter binds a character to the session, creating the session row
// if needed.
func (s *GormStore) BindCharacter(ctx context.Context, sessionID string, characterID int64) error {
	now := time.Now()
	sess := sessionRow{ID: sessionID, CharacterID: &characterID, LastActiveAt: now}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"character_id": characterID, "last_active_at": now}),
	}).Create(&sess).Error
	if err != nil {
		return fmt.Errorf("store bind character: %w", err)
	}
	return nil
}

// CreateCharacter inserts a new persona. Names are unique.
func (s *GormStore) CreateCharacter(ctx context.Context, c core.Character) (core.Character, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&characterRow{}).Where("name = ?", c.Name).Count(&count).Error; err != nil {
		return core.Character{}, fmt.Errorf("store create character: %w", err)
	}
	if count > 0 {
		return core.Character{}, core.ErrCharacterExists
	}
	row := characterRow{
		Name:             c.Name,
		Background:       c.Background,
		Personality:      c.Personality,
		Skills:           c.Skills,
		CurrentPlaystyle: c.CurrentStyle,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.Character{}, fmt.Errorf("store create character: %w", err)
	}
	c.ID = row.ID
	return c, nil
}

// ListCharacters returns all personas in id order.
func (s *GormStore) ListCharacters(ctx context.Context) ([]core.Character, error) {
	var rows []characterRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store list characters: %w", err)
	}
	chars := make([]core.Character, len(rows))
	for i, r := range rows {
		chars[i] = characterFromRow(r)
	}
	return chars, nil
}

// CharacterByID returns the persona or nil when absent.
func (s *GormStore) CharacterByID(ctx context.Context, id int64) (*core.Character, error) {
	var row characterRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store character by id: %w", err)
	}
	c := characterFromRow(row)
	return &c, nil
}

// CharacterByName returns the persona or nil when absent.
func (s *GormStore) CharacterByName(ctx context.Context, name string) (*core.Character, error) {
	var row characterRow
	err := s.db.WithContext(ctx).First(&row, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store character by name: %w", err)
	}
	c := characterFromRow(row)
	return &c, nil
}

func characterFromRow(r characterRow) core.Character {
	return core.Character{
		ID:           r.ID,
		Name:         r.Name,
		Background:   r.Background,
		Personality:  r.Personality,
		Skills:       r.Skills,
		CurrentStyle: r.CurrentPlaystyle,
	}
}
