package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Cueline/models/postgres"
	"Cueline/services/queue"
	"Cueline/storage/memory"
)

func entryStates(t *testing.T, store *memory.Store, sessionID string) map[string]postgres.QueueEntry {
	t.Helper()
	entries, err := store.EntriesBySession(context.Background(), sessionID)
	require.NoError(t, err)
	out := make(map[string]postgres.QueueEntry, len(entries))
	for _, e := range entries {
		out[e.ID] = *e
	}
	return out
}

func TestUndoRoundTripRestoresExactState(t *testing.T) {
	service, store, _, clock := newTestService(t)
	ctx := context.Background()

	entries := joinAll(t, service, clock, "T1", "Ana", "Ben", "Cleo", "Dan", "Eve")
	sessionID := entries["Ana"].SessionID

	// Build up confirmation state so the round trip has something to lose
	_, err := service.CheckConfirmations(ctx, "T1")
	require.NoError(t, err)
	require.NoError(t, service.ConfirmPresence(ctx, "T1", "device-Dan"))
	clock.Advance(6 * time.Minute)
	_, err = service.CheckConfirmations(ctx, "T1")
	require.NoError(t, err)

	before := entryStates(t, store, sessionID)

	_, err = service.RecordResult(ctx, "T1", queue.KingRetains)
	require.NoError(t, err)

	restored, err := service.UndoLastResult(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "Ben", restored)

	after := entryStates(t, store, sessionID)
	require.Len(t, after, len(before))
	for id, b := range before {
		a, ok := after[id]
		require.True(t, ok, "entry %s disappeared across the round trip", id)
		assert.Equal(t, b.Position, a.Position, "%s position", b.DisplayName)
		assert.Equal(t, b.Status, a.Status, "%s status", b.DisplayName)
		assert.Equal(t, b.WinStreak, a.WinStreak, "%s streak", b.DisplayName)
		assert.Equal(t, b.AskedAt, a.AskedAt, "%s asked-at", b.DisplayName)
		assert.Equal(t, b.ConfirmedAt, a.ConfirmedAt, "%s confirmed-at", b.DisplayName)
		assert.Equal(t, b.MiaAt, a.MiaAt, "%s mia-at", b.DisplayName)
		assert.Equal(t, b.GhostedAt, a.GhostedAt, "%s ghosted-at", b.DisplayName)
		assert.Nil(t, a.RemovedAt, "%s removal timestamp", b.DisplayName)
	}

	// The game record was consumed; a second undo has nothing left
	_, err = service.UndoLastResult(ctx, "T1")
	assert.ErrorIs(t, err, queue.ErrNothingToUndo)
}

func TestUndoNothingToUndo(t *testing.T) {
	service, _, _, _ := newTestService(t)

	_, err := service.UndoLastResult(context.Background(), "T1")
	assert.ErrorIs(t, err, queue.ErrNothingToUndo)
}

func TestUndoExpired(t *testing.T) {
	service, _, _, clock := newTestService(t)
	ctx := context.Background()

	joinAll(t, service, clock, "T1", "Ana", "Ben", "Cleo")
	_, err := service.RecordResult(ctx, "T1", queue.KingRetains)
	require.NoError(t, err)

	clock.Advance(61 * time.Second)
	_, err = service.UndoLastResult(ctx, "T1")
	assert.ErrorIs(t, err, queue.ErrUndoExpired)
}

func TestUndoKeepsLateJoinersAtTheEnd(t *testing.T) {
	service, store, _, clock := newTestService(t)
	ctx := context.Background()

	entries := joinAll(t, service, clock, "T1", "Ana", "Ben", "Cleo")

	_, err := service.RecordResult(ctx, "T1", queue.KingRetains)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Cleo"}, queueNames(t, service, "T1"))

	// Zoe joins after the result; undo must keep her, at the back
	clock.Advance(time.Second)
	_, err = service.Join(ctx, "T1", "Zoe", "", "device-Zoe")
	require.NoError(t, err)

	restored, err := service.UndoLastResult(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "Ben", restored)
	assert.Equal(t, []string{"Ana", "Ben", "Cleo", "Zoe"}, queueNames(t, service, "T1"))
	requireDense(t, store, entries["Ana"].SessionID)
}

func TestUndoDoesNotResurrectVoluntaryLeavers(t *testing.T) {
	service, _, _, clock := newTestService(t)
	ctx := context.Background()

	joinAll(t, service, clock, "T1", "Ana", "Ben", "Cleo", "Dan")

	_, err := service.RecordResult(ctx, "T1", queue.KingRetains)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Cleo", "Dan"}, queueNames(t, service, "T1"))

	// Dan leaves on his own after the result
	require.NoError(t, service.Leave(ctx, "T1", "device-Dan"))

	// Undo brings Ben back but not Dan; only the result's own elimination
	// is reversed
	restored, err := service.UndoLastResult(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "Ben", restored)
	assert.Equal(t, []string{"Ana", "Ben", "Cleo"}, queueNames(t, service, "T1"))
}

func TestUndoAfterEliminatedPlayerRejoined(t *testing.T) {
	service, store, _, clock := newTestService(t)
	ctx := context.Background()

	entries := joinAll(t, service, clock, "T1", "Ana", "Ben", "Cleo")
	oldBen := entries["Ben"]

	_, err := service.RecordResult(ctx, "T1", queue.KingRetains)
	require.NoError(t, err)

	// Ben hops straight back in line under the same device token
	clock.Advance(time.Second)
	newBen, err := service.Join(ctx, "T1", "Ben", "", "device-Ben")
	require.NoError(t, err)
	require.NotEqual(t, oldBen.ID, newBen.ID)

	// Undo must not revive the old entry next to the rejoined one; the
	// rejoined entry stands, at the back
	restored, err := service.UndoLastResult(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "Ben", restored)
	assert.Equal(t, []string{"Ana", "Cleo", "Ben"}, queueNames(t, service, "T1"))

	states := entryStates(t, store, oldBen.SessionID)
	assert.Equal(t, postgres.StatusEliminated, states[oldBen.ID].Status)
	assert.Equal(t, postgres.StatusWaiting, states[newBen.ID].Status)
	assert.Equal(t, 3, states[newBen.ID].Position)
	requireDense(t, store, oldBen.SessionID)
}

func TestUndoAfterDethrone(t *testing.T) {
	service, _, _, clock := newTestService(t)
	ctx := context.Background()

	joinAll(t, service, clock, "T1", "Ana", "Ben", "Cleo")

	// Ana builds a streak, then loses it
	_, err := service.RecordResult(ctx, "T1", queue.KingRetains)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	summary, err := service.RecordResult(ctx, "T1", queue.ChallengerDethrones)
	require.NoError(t, err)
	assert.Equal(t, "Cleo", summary.Winner)

	restored, err := service.UndoLastResult(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", restored)

	// Ana is king again with her streak intact
	views, err := service.GetQueue(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Ana", views[0].DisplayName)
	assert.Equal(t, 1, views[0].WinStreak)
	assert.Equal(t, "Cleo", views[1].DisplayName)
}
