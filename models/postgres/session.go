package postgres

import (
	"time"
)

// Session status values. A table code has at most one active session at a
// time; creating a new session for the same code closes the previous one.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionClosed SessionStatus = "closed"
)

/*
 * 'Session' is one active table context. It owns the queue entries and the
 * game log for that table; closing the session wipes both.
 */
type Session struct {
	ID        string        `gorm:"primaryKey;size:36;not null"`
	TableCode string        `gorm:"size:50;not null;index:idx_sessions_table_code"`
	Status    SessionStatus `gorm:"size:10;not null;default:'active';index:idx_sessions_status"`
	// Game mode and rule tags are opaque passthrough strings, the core
	// never interprets them
	GameMode     string    `gorm:"size:50"`
	RuleTags     string    `gorm:"size:200"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	LastActivity time.Time

	// Relationships
	Entries []*QueueEntry `gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Games   []*GameRecord `gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
