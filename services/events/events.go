package events

import (
	"context"
	"sync"
)

// Event types pushed to external consumers (push-notification collaborator,
// board displays, ...). queue_changed is emitted after every mutating
// operation and carries the full ordered queue.
const (
	TypeQueueChanged          = "queue_changed"
	TypeConfirmationRequested = "confirmation_requested"
	TypePlayerMia             = "player_mia"
	TypePlayerGhosted         = "player_ghosted"
)

// Event is one outbound notification for a table.
type Event struct {
	Type      string `json:"type"`
	TableCode string `json:"table_code"`
	EntryID   string `json:"entry_id,omitempty"`
	Position  int    `json:"position,omitempty"`
	// Full ordered queue view, only set on queue_changed
	Queue any `json:"queue,omitempty"`
}

// Publisher is the outbound side of the core. Implementations must tolerate
// being called under the session lock, so they should not block for long.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NullPublisher drops everything. Handy default when no feed is wired.
type NullPublisher struct{}

func (NullPublisher) Publish(ctx context.Context, ev Event) error { return nil }

// Recorder keeps every published event in memory, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(ctx context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByType filters recorded events by type.
func (r *Recorder) ByType(eventType string) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// Reset clears the recorder between test steps.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
