package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusDeleted(t *testing.T) {
	assert.False(t, StatusWaiting.Deleted())
	assert.False(t, StatusConfirmed.Deleted())
	assert.False(t, StatusMia.Deleted())
	assert.False(t, StatusGhosted.Deleted())
	assert.True(t, StatusEliminated.Deleted())
	assert.True(t, StatusRemoved.Deleted())
}

func TestResetConfirmation(t *testing.T) {
	asked := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	e := &QueueEntry{Status: StatusGhosted, AskedAt: &asked, GhostedAt: &asked}
	e.ResetConfirmation()
	assert.Equal(t, StatusWaiting, e.Status)
	assert.Nil(t, e.AskedAt)
	assert.Nil(t, e.GhostedAt)
	assert.False(t, e.HasConfirmationState())

	// Deleted entries are never touched
	gone := &QueueEntry{Status: StatusEliminated, AskedAt: &asked}
	gone.ResetConfirmation()
	assert.Equal(t, StatusEliminated, gone.Status)
	assert.NotNil(t, gone.AskedAt)
}

func TestSnapshotRoundTrip(t *testing.T) {
	asked := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Version: SnapshotVersion,
		Entries: []SnapshotEntry{
			{EntryID: "e1", Position: 1, Status: StatusWaiting, WinStreak: 3},
			{EntryID: "e2", Position: 2, Status: StatusMia, AskedAt: &asked, MiaAt: &asked},
		},
	}

	encoded, err := EncodeSnapshot(snap)
	require.NoError(t, err)

	record := &GameRecord{ID: "g1", Snapshot: encoded}
	require.True(t, record.HasSnapshot())

	decoded, err := record.DecodeSnapshot()
	require.NoError(t, err)
	assert.Equal(t, snap, *decoded)
}

func TestDecodeSnapshotRejectsUnknownVersion(t *testing.T) {
	record := &GameRecord{ID: "g1", Snapshot: []byte(`{"version":99,"entries":[]}`)}
	_, err := record.DecodeSnapshot()
	assert.Error(t, err)

	empty := &GameRecord{ID: "g2"}
	assert.False(t, empty.HasSnapshot())
	_, err = empty.DecodeSnapshot()
	assert.Error(t, err)
}
