package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"Cueline/config"
	models "Cueline/models/postgres"
	storagepg "Cueline/storage/postgres"
)

// These tests run against a real PostgreSQL instance, configured the same
// way as the server (POSTGRES_* env vars). Set POSTGRES_TEST=true to enable.
func connectTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if os.Getenv("POSTGRES_TEST") != "true" {
		t.Skip("POSTGRES_TEST not set, skipping PostgreSQL store tests")
	}
	db, err := config.ConnectGORM()
	if err != nil {
		t.Fatalf("Error connecting to PostgreSQL: %v", err)
	}
	if err := config.MigrateDatabase(db); err != nil {
		t.Fatalf("Error migrating database: %v", err)
	}
	return db
}

// Helper function to clean up after tests
func cleanupDB(t *testing.T, db *gorm.DB) {
	assert.NoError(t, db.Exec("DELETE FROM game_records").Error)
	assert.NoError(t, db.Exec("DELETE FROM queue_entries").Error)
	assert.NoError(t, db.Exec("DELETE FROM sessions").Error)
}

func TestSessionEntryGameLifecycle(t *testing.T) {
	db := connectTestDB(t)
	defer cleanupDB(t, db)

	store := storagepg.NewStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	session := &models.Session{
		ID:           "s1",
		TableCode:    "T1",
		Status:       models.SessionActive,
		GameMode:     "eight-ball",
		CreatedAt:    now,
		LastActivity: now,
	}
	require.NoError(t, store.InsertSession(ctx, session))

	found, err := store.ActiveSessionByCode(ctx, "T1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "s1", found.ID)

	entry := &models.QueueEntry{
		ID: "e1", SessionID: "s1", Identity: "d1", DisplayName: "Ana",
		Position: 1, Status: models.StatusWaiting, JoinedAt: now,
	}
	require.NoError(t, store.InsertEntry(ctx, entry))

	entry.Position = 2
	entry.Status = models.StatusMia
	asked := now.Add(time.Minute)
	entry.AskedAt = &asked
	require.NoError(t, store.UpdateEntries(ctx, entry))

	entries, err := store.EntriesBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Position)
	assert.Equal(t, models.StatusMia, entries[0].Status)
	require.NotNil(t, entries[0].AskedAt)

	snap, err := models.EncodeSnapshot(models.Snapshot{
		Version: models.SnapshotVersion,
		Entries: []models.SnapshotEntry{{EntryID: "e1", Position: 1, Status: models.StatusWaiting}},
	})
	require.NoError(t, err)
	require.NoError(t, store.InsertGame(ctx, &models.GameRecord{
		ID: "g1", SessionID: "s1", WinnerName: "Ana", LoserName: "Ben",
		Snapshot: snap, CreatedAt: now,
	}))
	require.NoError(t, store.InsertGame(ctx, &models.GameRecord{
		ID: "g2", SessionID: "s1", WinnerName: "Ana", LoserName: "Cleo",
		CreatedAt: now.Add(time.Minute),
	}))

	latest, err := store.LatestGame(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "g2", latest.ID)

	// g2 has no snapshot, so the undoable record is g1
	undoable, err := store.LatestGameWithSnapshot(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, undoable)
	assert.Equal(t, "g1", undoable.ID)

	pruned, err := store.PruneSnapshots(ctx, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	require.NoError(t, store.CloseSession(ctx, "s1"))
	entries, err = store.EntriesBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, entries)
	found, err = store.ActiveSessionByCode(ctx, "T1")
	require.NoError(t, err)
	assert.Nil(t, found)
}
