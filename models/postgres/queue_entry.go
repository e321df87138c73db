package postgres

import (
	"time"
)

// EntryStatus is the closed set of lifecycle states a queue entry can be in.
// waiting/confirmed/mia/ghosted are the advisory confirmation overlay;
// eliminated/removed are terminal and take the entry out of position math.
type EntryStatus string

const (
	StatusWaiting    EntryStatus = "waiting"
	StatusConfirmed  EntryStatus = "confirmed"
	StatusMia        EntryStatus = "mia"
	StatusGhosted    EntryStatus = "ghosted"
	StatusEliminated EntryStatus = "eliminated"
	StatusRemoved    EntryStatus = "removed"
)

// Deleted reports whether the status takes the entry out of the active queue.
// Deleted entries are kept in storage for undo and the game log.
func (s EntryStatus) Deleted() bool {
	return s == StatusEliminated || s == StatusRemoved
}

/*
 * 'QueueEntry' is one participant's slot in a session's queue. Position is
 * 1-based and densely packed over the non-deleted entries of the session;
 * the compactor is the only thing that assigns positions.
 */
type QueueEntry struct {
	ID        string `gorm:"primaryKey;size:36;not null"`
	SessionID string `gorm:"size:36;not null;index:idx_queue_entries_session"`
	// Stable opaque caller/device token, unique among the session's
	// non-deleted entries
	Identity    string      `gorm:"size:100;not null;index:idx_queue_entries_identity"`
	DisplayName string      `gorm:"size:50;not null"`
	PartnerName string      `gorm:"size:50"`
	Position    int         `gorm:"not null"`
	Status      EntryStatus `gorm:"size:12;not null;default:'waiting'"`
	// Meaningful only while the entry holds position 1
	WinStreak int `gorm:"default:0"`

	// Confirmation overlay timestamps, all nullable
	AskedAt     *time.Time
	ConfirmedAt *time.Time
	MiaAt       *time.Time
	GhostedAt   *time.Time

	JoinedAt  time.Time `gorm:"not null"`
	RemovedAt *time.Time

	Session Session `gorm:"foreignKey:SessionID"`
}

// Deleted reports whether the entry is logically deleted (eliminated or
// removed) and therefore excluded from position math.
func (e *QueueEntry) Deleted() bool {
	return e.Status.Deleted()
}

// ResetConfirmation drops the whole confirmation overlay: status back to
// waiting, all four timestamps cleared. Used when an entry becomes king,
// since the king is physically at the table and needs no confirmation.
func (e *QueueEntry) ResetConfirmation() {
	if e.Deleted() {
		return
	}
	e.Status = StatusWaiting
	e.AskedAt = nil
	e.ConfirmedAt = nil
	e.MiaAt = nil
	e.GhostedAt = nil
}

// HasConfirmationState reports whether any part of the overlay is set.
func (e *QueueEntry) HasConfirmationState() bool {
	return e.Status == StatusConfirmed || e.Status == StatusMia || e.Status == StatusGhosted ||
		e.AskedAt != nil || e.ConfirmedAt != nil || e.MiaAt != nil || e.GhostedAt != nil
}
