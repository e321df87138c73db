package queue

import (
	"time"

	"Cueline/models/postgres"
)

// EntryView is the external read model of one queue slot, ordered by
// position in every listing and in queue_changed events.
type EntryView struct {
	ID          string               `json:"id"`
	Position    int                  `json:"position"`
	DisplayName string               `json:"display_name"`
	PartnerName string               `json:"partner_name,omitempty"`
	Status      postgres.EntryStatus `json:"status"`
	WinStreak   int                  `json:"win_streak,omitempty"`
	AskedAt     *time.Time           `json:"asked_at,omitempty"`
	ConfirmedAt *time.Time           `json:"confirmed_at,omitempty"`
	JoinedAt    time.Time            `json:"joined_at"`
}

// queueView builds the ordered active-queue view.
func queueView(entries []*postgres.QueueEntry) []EntryView {
	active := activeEntries(entries)
	sortActive(active)
	views := make([]EntryView, 0, len(active))
	for _, e := range active {
		views = append(views, EntryView{
			ID:          e.ID,
			Position:    e.Position,
			DisplayName: e.DisplayName,
			PartnerName: e.PartnerName,
			Status:      e.Status,
			WinStreak:   e.WinStreak,
			AskedAt:     copyTime(e.AskedAt),
			ConfirmedAt: copyTime(e.ConfirmedAt),
			JoinedAt:    e.JoinedAt,
		})
	}
	return views
}
