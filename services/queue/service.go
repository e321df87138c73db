package queue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	queue_constants "Cueline/constants/queue"
	"Cueline/models/postgres"
	"Cueline/monitoring"
	"Cueline/services/events"
	"Cueline/utils"
)

// How many random codes to try before giving up on finding a free one
const tableCodeAttempts = 10

/*
 * Service is the queue state machine for every table. All mutating
 * operations on one session run under that table's lock; different tables
 * share nothing and never contend.
 */
type Service struct {
	store  Store
	events events.Publisher
	policy queue_constants.Policy

	// Now is swappable so tests can simulate elapsed time
	Now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(store Store, publisher events.Publisher, policy queue_constants.Policy) *Service {
	if publisher == nil {
		publisher = events.NullPublisher{}
	}
	return &Service{
		store:  store,
		events: publisher,
		policy: policy,
		Now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// tableLock returns the mutex owning all mutations for one table code.
func (s *Service) tableLock(tableCode string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[tableCode]
	if !ok {
		l = &sync.Mutex{}
		s.locks[tableCode] = l
	}
	return l
}

// --- Session lifecycle ---

// CreateSession opens a fresh session for the table, closing and wiping any
// prior active one (a table has at most one active session). An empty
// tableCode asks the service to pick a free code for a new table.
func (s *Service) CreateSession(ctx context.Context, tableCode, gameMode, ruleTags string) (*postgres.Session, error) {
	if tableCode == "" {
		code, err := s.newTableCode(ctx)
		if err != nil {
			return nil, err
		}
		tableCode = code
	}
	l := s.tableLock(tableCode)
	l.Lock()
	defer l.Unlock()
	return s.createSessionLocked(ctx, tableCode, gameMode, ruleTags)
}

// newTableCode generates a code no active session is using.
func (s *Service) newTableCode(ctx context.Context) (string, error) {
	for i := 0; i < tableCodeAttempts; i++ {
		code := utils.GenerateTableCode(queue_constants.TableCodeLength)
		existing, err := s.store.ActiveSessionByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("error checking table code %s: %v", code, err)
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free table code after %d attempts", tableCodeAttempts)
}

func (s *Service) createSessionLocked(ctx context.Context, tableCode, gameMode, ruleTags string) (*postgres.Session, error) {
	prior, err := s.store.ActiveSessionByCode(ctx, tableCode)
	if err != nil {
		return nil, fmt.Errorf("error looking up active session for table %s: %v", tableCode, err)
	}
	if prior != nil {
		log.Printf("[SESSION] Superseding active session %s for table %s", prior.ID, tableCode)
		if err := s.store.CloseSession(ctx, prior.ID); err != nil {
			return nil, fmt.Errorf("error closing superseded session: %v", err)
		}
	}

	now := s.Now()
	session := &postgres.Session{
		ID:           uuid.NewString(),
		TableCode:    tableCode,
		Status:       postgres.SessionActive,
		GameMode:     gameMode,
		RuleTags:     ruleTags,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.store.InsertSession(ctx, session); err != nil {
		return nil, fmt.Errorf("error creating session for table %s: %v", tableCode, err)
	}
	monitoring.RecordOperation("create_session", tableCode)
	monitoring.SetQueueLength(tableCode, 0)
	return session, nil
}

// EnsureSession returns the table's active session, creating one if needed.
func (s *Service) EnsureSession(ctx context.Context, tableCode string) (*postgres.Session, error) {
	l := s.tableLock(tableCode)
	l.Lock()
	defer l.Unlock()
	return s.ensureSessionLocked(ctx, tableCode)
}

func (s *Service) ensureSessionLocked(ctx context.Context, tableCode string) (*postgres.Session, error) {
	session, err := s.store.ActiveSessionByCode(ctx, tableCode)
	if err != nil {
		return nil, fmt.Errorf("error looking up active session for table %s: %v", tableCode, err)
	}
	if session != nil {
		return session, nil
	}
	return s.createSessionLocked(ctx, tableCode, "", "")
}

// CloseSession closes the table's active session and wipes its entries.
// Closing a table with no active session is a no-op.
func (s *Service) CloseSession(ctx context.Context, tableCode string) error {
	l := s.tableLock(tableCode)
	l.Lock()
	defer l.Unlock()

	session, err := s.store.ActiveSessionByCode(ctx, tableCode)
	if err != nil {
		return fmt.Errorf("error looking up active session for table %s: %v", tableCode, err)
	}
	if session == nil {
		return nil
	}
	if err := s.store.CloseSession(ctx, session.ID); err != nil {
		return fmt.Errorf("error closing session %s: %v", session.ID, err)
	}
	monitoring.RecordOperation("close_session", tableCode)
	monitoring.SetQueueLength(tableCode, 0)
	s.publishQueueChanged(ctx, tableCode, nil)
	return nil
}

// ActiveSessions lists every active session across tables (sweeper input).
func (s *Service) ActiveSessions(ctx context.Context) ([]*postgres.Session, error) {
	return s.store.ActiveSessions(ctx)
}

// ExpireStale closes sessions idle past the session TTL and reports how
// many were closed.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	sessions, err := s.store.ActiveSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("error listing active sessions: %v", err)
	}
	cutoff := s.Now().Add(-s.policy.SessionTTL)
	expired := 0
	for _, session := range sessions {
		if session.LastActivity.After(cutoff) {
			continue
		}
		if err := s.CloseSession(ctx, session.TableCode); err != nil {
			log.Printf("[SESSION] Error expiring session %s: %v", session.ID, err)
			continue
		}
		log.Printf("[SESSION] Expired stale session %s for table %s (idle since %s)",
			session.ID, session.TableCode, session.LastActivity.Format(time.RFC3339))
		expired++
	}
	return expired, nil
}

// PruneSnapshots discards undo snapshots older than the retention window.
func (s *Service) PruneSnapshots(ctx context.Context) (int64, error) {
	return s.store.PruneSnapshots(ctx, s.Now().Add(-s.policy.SnapshotRetention))
}

// --- Structural queue operations ---

// Join appends a new entry at the back of the line, auto-creating the
// session on first join. Name and partner arrive already validated.
func (s *Service) Join(ctx context.Context, tableCode, name, partnerName, identity string) (*postgres.QueueEntry, error) {
	l := s.tableLock(tableCode)
	l.Lock()
	defer l.Unlock()

	session, err := s.ensureSessionLocked(ctx, tableCode)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.EntriesBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading entries for session %s: %v", session.ID, err)
	}
	if findByIdentity(entries, identity) != nil {
		return nil, ErrDuplicateIdentity
	}

	now := s.Now()
	entry := &postgres.QueueEntry{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		Identity:    identity,
		DisplayName: name,
		PartnerName: partnerName,
		Position:    len(activeEntries(entries)) + 1,
		Status:      postgres.StatusWaiting,
		JoinedAt:    now,
	}
	entries = append(entries, entry)
	compact(entries)

	if err := s.store.InsertEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("error inserting entry for %s: %v", name, err)
	}
	if err := s.finishMutation(ctx, session, entries, "join"); err != nil {
		return nil, err
	}
	return entry, nil
}

// Leave marks the caller's own entry removed and compacts the queue.
func (s *Service) Leave(ctx context.Context, tableCode, identity string) error {
	return s.remove(ctx, tableCode, "leave", func(entries []*postgres.QueueEntry) *postgres.QueueEntry {
		return findByIdentity(entries, identity)
	}, ErrNotInQueue)
}

// RemoveByID is the operator-initiated removal. Same terminal status as a
// voluntary leave; only the trigger differs.
func (s *Service) RemoveByID(ctx context.Context, tableCode, entryID string) error {
	return s.remove(ctx, tableCode, "remove", func(entries []*postgres.QueueEntry) *postgres.QueueEntry {
		for _, e := range entries {
			if e.ID == entryID && !e.Deleted() {
				return e
			}
		}
		return nil
	}, ErrNotFound)
}

func (s *Service) remove(ctx context.Context, tableCode, op string, find func([]*postgres.QueueEntry) *postgres.QueueEntry, missing error) error {
	l := s.tableLock(tableCode)
	l.Lock()
	defer l.Unlock()

	session, err := s.store.ActiveSessionByCode(ctx, tableCode)
	if err != nil {
		return fmt.Errorf("error looking up active session for table %s: %v", tableCode, err)
	}
	if session == nil {
		return missing
	}
	entries, err := s.store.EntriesBySession(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("error loading entries for session %s: %v", session.ID, err)
	}
	entry := find(entries)
	if entry == nil {
		return missing
	}

	now := s.Now()
	entry.Status = postgres.StatusRemoved
	entry.RemovedAt = &now
	compact(entries)

	return s.finishMutation(ctx, session, entries, op)
}

// ConfirmPresence flips the caller's entry to confirmed. Recovery from mia
// or ghosted is always allowed.
func (s *Service) ConfirmPresence(ctx context.Context, tableCode, identity string) error {
	l := s.tableLock(tableCode)
	l.Lock()
	defer l.Unlock()

	session, err := s.store.ActiveSessionByCode(ctx, tableCode)
	if err != nil {
		return fmt.Errorf("error looking up active session for table %s: %v", tableCode, err)
	}
	if session == nil {
		return ErrNotInQueue
	}
	entries, err := s.store.EntriesBySession(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("error loading entries for session %s: %v", session.ID, err)
	}
	entry := findByIdentity(entries, identity)
	if entry == nil {
		return ErrNotInQueue
	}

	confirmEntry(entry, s.Now())
	return s.finishMutation(ctx, session, entries, "confirm")
}

// CheckConfirmations runs one heat-map pass for the table and returns the
// escalation/ask events it produced. Safe to invoke redundantly.
func (s *Service) CheckConfirmations(ctx context.Context, tableCode string) ([]events.Event, error) {
	l := s.tableLock(tableCode)
	l.Lock()
	defer l.Unlock()

	session, err := s.store.ActiveSessionByCode(ctx, tableCode)
	if err != nil {
		return nil, fmt.Errorf("error looking up active session for table %s: %v", tableCode, err)
	}
	if session == nil {
		return nil, nil
	}
	entries, err := s.store.EntriesBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading entries for session %s: %v", session.ID, err)
	}

	evs, changed := checkHeatMap(tableCode, entries, s.Now(),
		s.policy.MiaAfter, s.policy.GhostAfter, s.policy.AskFrom, s.policy.AskTo)
	if !changed {
		return evs, nil
	}

	if err := s.store.UpdateEntries(ctx, activeEntries(entries)...); err != nil {
		return nil, fmt.Errorf("error persisting heat-map transitions: %v", err)
	}
	for _, ev := range evs {
		if err := s.events.Publish(ctx, ev); err != nil {
			log.Printf("[EVENTS] Error publishing %s for table %s: %v", ev.Type, tableCode, err)
		}
	}
	s.publishQueueChanged(ctx, tableCode, entries)
	return evs, nil
}

// GetQueue returns the ordered active queue for the table. Read-only, no
// lock needed; the store hands back a consistent snapshot.
func (s *Service) GetQueue(ctx context.Context, tableCode string) ([]EntryView, error) {
	session, err := s.store.ActiveSessionByCode(ctx, tableCode)
	if err != nil {
		return nil, fmt.Errorf("error looking up active session for table %s: %v", tableCode, err)
	}
	if session == nil {
		return []EntryView{}, nil
	}
	entries, err := s.store.EntriesBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading entries for session %s: %v", session.ID, err)
	}
	return queueView(entries), nil
}

// --- shared plumbing ---

// finishMutation persists the (already compacted) entries, touches the
// session and emits queue_changed. Every mutating operation funnels
// through here.
func (s *Service) finishMutation(ctx context.Context, session *postgres.Session, entries []*postgres.QueueEntry, op string) error {
	if err := s.store.UpdateEntries(ctx, entries...); err != nil {
		return fmt.Errorf("error persisting entries for session %s: %v", session.ID, err)
	}
	session.LastActivity = s.Now()
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("error touching session %s: %v", session.ID, err)
	}
	monitoring.RecordOperation(op, session.TableCode)
	monitoring.SetQueueLength(session.TableCode, len(activeEntries(entries)))
	s.publishQueueChanged(ctx, session.TableCode, entries)
	return nil
}

func (s *Service) publishQueueChanged(ctx context.Context, tableCode string, entries []*postgres.QueueEntry) {
	ev := events.Event{
		Type:      events.TypeQueueChanged,
		TableCode: tableCode,
		Queue:     queueView(entries),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("[EVENTS] Error publishing queue_changed for table %s: %v", tableCode, err)
	}
}

func findByIdentity(entries []*postgres.QueueEntry, identity string) *postgres.QueueEntry {
	for _, e := range entries {
		if e.Identity == identity && !e.Deleted() {
			return e
		}
	}
	return nil
}
