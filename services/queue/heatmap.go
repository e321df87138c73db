package queue

import (
	"time"

	"Cueline/models/postgres"
	"Cueline/services/events"
)

// checkHeatMap runs one pass of the advisory confirmation overlay over a
// session's entries and returns the events it produced. It reads positions
// but never writes them: nothing in here removes anyone from the queue or
// changes promotion order.
//
// The pass is idempotent; with no elapsed time a second run produces no new
// transitions, so it is safe to trigger from both the sweeper ticker and
// structural events.
func checkHeatMap(tableCode string, entries []*postgres.QueueEntry, now time.Time, miaAfter, ghostAfter time.Duration, askFrom, askTo int) (out []events.Event, changed bool) {
	for _, e := range activeEntries(entries) {
		switch {
		case e.Position == 1:
			// The king is at the table; any leftover overlay from its
			// time in line is meaningless
			if e.HasConfirmationState() {
				e.ResetConfirmation()
				changed = true
			}

		case e.AskedAt != nil && e.ConfirmedAt == nil:
			// Escalate previously asked, still unconfirmed entries
			elapsed := now.Sub(*e.AskedAt)
			switch e.Status {
			case postgres.StatusMia:
				if elapsed >= ghostAfter {
					e.Status = postgres.StatusGhosted
					stamp := now
					e.GhostedAt = &stamp
					changed = true
					out = append(out, events.Event{
						Type:      events.TypePlayerGhosted,
						TableCode: tableCode,
						EntryID:   e.ID,
						Position:  e.Position,
					})
				}
			case postgres.StatusWaiting:
				if elapsed >= miaAfter {
					e.Status = postgres.StatusMia
					stamp := now
					e.MiaAt = &stamp
					changed = true
					out = append(out, events.Event{
						Type:      events.TypePlayerMia,
						TableCode: tableCode,
						EntryID:   e.ID,
						Position:  e.Position,
					})
				}
			case postgres.StatusConfirmed, postgres.StatusGhosted:
				// confirmed needs nothing, ghosted is already terminal
				// for the overlay (recovery happens via ConfirmPresence)
			case postgres.StatusEliminated, postgres.StatusRemoved:
				// unreachable, activeEntries filtered these
			}

		case e.AskedAt == nil && e.Status == postgres.StatusWaiting &&
			e.Position >= askFrom && e.Position <= askTo:
			// First ask for entries inside the ask window
			stamp := now
			e.AskedAt = &stamp
			changed = true
			out = append(out, events.Event{
				Type:      events.TypeConfirmationRequested,
				TableCode: tableCode,
				EntryID:   e.ID,
				Position:  e.Position,
			})
		}
	}

	return out, changed
}

// confirmEntry applies an explicit presence confirmation. Allowed from any
// overlay state; there is no point of no return.
func confirmEntry(e *postgres.QueueEntry, now time.Time) {
	e.Status = postgres.StatusConfirmed
	stamp := now
	e.ConfirmedAt = &stamp
	e.MiaAt = nil
	e.GhostedAt = nil
}
