package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// SnapshotVersion is bumped whenever the snapshot schema changes, so old
// rows can be told apart from new ones instead of silently misparsing.
const SnapshotVersion = 1

/*
 * 'GameRecord' is one completed result. The snapshot column holds the full
 * pre-result state of every active entry and powers exact undo; it is
 * dropped (set to NULL) after the retention window while the rest of the
 * record stays for stats.
 */
type GameRecord struct {
	ID         string `gorm:"primaryKey;size:36;not null"`
	SessionID  string `gorm:"size:36;not null;index:idx_game_records_session"`
	WinnerName string `gorm:"size:50;not null"`
	LoserName  string `gorm:"size:50;not null"`
	// Winner's streak after this game was applied
	WinStreak       int `gorm:"default:0"`
	DurationSeconds int `gorm:"default:0"`
	// Counted marks games long enough to feed the rolling average,
	// filtering accidental rapid double-taps
	Counted   bool           `gorm:"default:false"`
	Snapshot  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"default:CURRENT_TIMESTAMP;index"`

	Session Session `gorm:"foreignKey:SessionID"`
}

// Snapshot is the versioned pre-result state attached to a game record.
type Snapshot struct {
	Version int             `json:"version"`
	Entries []SnapshotEntry `json:"entries"`
}

// SnapshotEntry captures everything undo needs to put one entry back.
type SnapshotEntry struct {
	EntryID     string      `json:"entry_id"`
	Position    int         `json:"position"`
	Status      EntryStatus `json:"status"`
	WinStreak   int         `json:"win_streak"`
	AskedAt     *time.Time  `json:"asked_at,omitempty"`
	ConfirmedAt *time.Time  `json:"confirmed_at,omitempty"`
	MiaAt       *time.Time  `json:"mia_at,omitempty"`
	GhostedAt   *time.Time  `json:"ghosted_at,omitempty"`
}

// EncodeSnapshot serializes a snapshot into the jsonb column value.
func EncodeSnapshot(snap Snapshot) (datatypes.JSON, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("error encoding snapshot: %v", err)
	}
	return datatypes.JSON(data), nil
}

// DecodeSnapshot parses the jsonb column back into a snapshot, rejecting
// versions this code does not understand.
func (g *GameRecord) DecodeSnapshot() (*Snapshot, error) {
	if len(g.Snapshot) == 0 {
		return nil, fmt.Errorf("game record %s carries no snapshot", g.ID)
	}
	var snap Snapshot
	if err := json.Unmarshal(g.Snapshot, &snap); err != nil {
		return nil, fmt.Errorf("error decoding snapshot: %v", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return &snap, nil
}

// HasSnapshot reports whether the record still carries an undo snapshot.
func (g *GameRecord) HasSnapshot() bool {
	return len(g.Snapshot) > 0
}
