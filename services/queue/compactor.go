package queue

import (
	"fmt"
	"sort"

	"Cueline/models/postgres"
)

// compact is the single source of truth for positions. It renumbers the
// non-deleted entries densely 1..N, preserving FIFO order, and is run after
// every structural change (join, leave, elimination, removal, undo).
//
// Promotion rules:
//   - an emptied king slot is filled by the old challenger (or the first
//     entry in order), and a freshly installed king gets its confirmation
//     overlay fully reset
//   - an emptied challenger slot is filled by strictly the next entry in
//     FIFO order, no matter its confirmation status; a ghosted entry still
//     gets promoted and a human decides whether to remove it
//   - an occupied slot is never touched, including its confirmation state
//
// compact is total (works on zero and one entry) and idempotent.
func compact(entries []*postgres.QueueEntry) {
	active := activeEntries(entries)
	sortActive(active)

	for i, e := range active {
		if i == 0 && e.Position != 1 {
			// A new king was just promoted; it is physically at the
			// table, so the confirmation overlay no longer applies
			e.ResetConfirmation()
		}
		e.Position = i + 1
	}
}

// activeEntries filters out the logically deleted entries.
func activeEntries(entries []*postgres.QueueEntry) []*postgres.QueueEntry {
	active := make([]*postgres.QueueEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Deleted() {
			active = append(active, e)
		}
	}
	return active
}

// sortActive orders entries by (position, join time, id). Join time and id
// break ties between entries that raced into the same slot.
func sortActive(active []*postgres.QueueEntry) {
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Position != active[j].Position {
			return active[i].Position < active[j].Position
		}
		if !active[i].JoinedAt.Equal(active[j].JoinedAt) {
			return active[i].JoinedAt.Before(active[j].JoinedAt)
		}
		return active[i].ID < active[j].ID
	})
}

// VerifyDense checks the density invariant: the positions of the
// non-deleted entries must be exactly {1..N}. A violation is a programming
// defect, never a runtime condition, so this is only called from tests.
func VerifyDense(entries []*postgres.QueueEntry) error {
	active := activeEntries(entries)
	seen := make(map[int]string, len(active))
	for _, e := range active {
		if e.Position < 1 || e.Position > len(active) {
			return fmt.Errorf("entry %s has position %d outside 1..%d", e.ID, e.Position, len(active))
		}
		if other, dup := seen[e.Position]; dup {
			return fmt.Errorf("entries %s and %s share position %d", other, e.ID, e.Position)
		}
		seen[e.Position] = e.ID
	}
	return nil
}
