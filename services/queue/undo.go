package queue

import (
	"context"
	"fmt"
	"sort"

	"Cueline/models/postgres"
)

// UndoLastResult reverses the most recent recorded result from its
// snapshot and returns the display name of the player it brings back.
//
// Exactly the result's own elimination is reversed: entries that joined
// after the snapshot keep their spot at the back, and entries that left
// voluntarily stay gone. If the eliminated player already rejoined under
// the same identity token, the rejoined entry stands and the old one is
// not revived, so an identity never holds two live entries. The consumed
// game record is deleted, so a second undo fails with ErrNothingToUndo.
func (s *Service) UndoLastResult(ctx context.Context, tableCode string) (string, error) {
	l := s.tableLock(tableCode)
	l.Lock()
	defer l.Unlock()

	session, err := s.store.ActiveSessionByCode(ctx, tableCode)
	if err != nil {
		return "", fmt.Errorf("error looking up active session for table %s: %v", tableCode, err)
	}
	if session == nil {
		return "", ErrNothingToUndo
	}

	record, err := s.store.LatestGameWithSnapshot(ctx, session.ID)
	if err != nil {
		return "", fmt.Errorf("error loading last game for session %s: %v", session.ID, err)
	}
	if record == nil {
		return "", ErrNothingToUndo
	}
	if s.Now().Sub(record.CreatedAt) > s.policy.UndoWindow {
		return "", ErrUndoExpired
	}

	snap, err := record.DecodeSnapshot()
	if err != nil {
		return "", err
	}

	entries, err := s.store.EntriesBySession(ctx, session.ID)
	if err != nil {
		return "", fmt.Errorf("error loading entries for session %s: %v", session.ID, err)
	}
	byID := make(map[string]*postgres.QueueEntry, len(entries))
	liveIdentity := make(map[string]bool, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
		if !e.Deleted() {
			liveIdentity[e.Identity] = true
		}
	}

	restored := make(map[string]bool, len(snap.Entries))
	maxPos := 0
	for _, se := range snap.Entries {
		e := byID[se.EntryID]
		if e == nil {
			continue
		}
		if e.Status == postgres.StatusRemoved {
			// Voluntary departure after the snapshot stands; undo only
			// reverses the result's own elimination
			continue
		}
		if e.Deleted() && liveIdentity[e.Identity] {
			// The eliminated player already rejoined; the rejoined entry
			// stands and the old one stays dead
			continue
		}
		e.Position = se.Position
		e.Status = se.Status
		e.WinStreak = se.WinStreak
		e.AskedAt = copyTime(se.AskedAt)
		e.ConfirmedAt = copyTime(se.ConfirmedAt)
		e.MiaAt = copyTime(se.MiaAt)
		e.GhostedAt = copyTime(se.GhostedAt)
		e.RemovedAt = nil
		restored[e.ID] = true
		if se.Position > maxPos {
			maxPos = se.Position
		}
	}

	// Entries that joined after the snapshot slot in behind the restored
	// block, keeping their relative join order
	var late []*postgres.QueueEntry
	for _, e := range entries {
		if !e.Deleted() && !restored[e.ID] {
			late = append(late, e)
		}
	}
	sort.SliceStable(late, func(i, j int) bool {
		if !late[i].JoinedAt.Equal(late[j].JoinedAt) {
			return late[i].JoinedAt.Before(late[j].JoinedAt)
		}
		return late[i].ID < late[j].ID
	})
	for i, e := range late {
		e.Position = maxPos + 1 + i
	}

	compact(entries)

	if err := s.store.DeleteGame(ctx, record.ID); err != nil {
		return "", fmt.Errorf("error deleting undone game record: %v", err)
	}
	if err := s.finishMutation(ctx, session, entries, "undo"); err != nil {
		return "", err
	}
	return record.LoserName, nil
}
