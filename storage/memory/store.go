package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"Cueline/models/postgres"
)

/*
 * Store is the in-memory implementation of the queue storage port. It backs
 * tests and database-less single-node deployments. Everything is deep-copied
 * on the way in and out so callers can never alias store-owned state.
 */
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*postgres.Session               // session ID -> session
	entries  map[string]map[string]*postgres.QueueEntry // session ID -> entry ID -> entry
	games    map[string][]*postgres.GameRecord          // session ID -> records, insert order
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*postgres.Session),
		entries:  make(map[string]map[string]*postgres.QueueEntry),
		games:    make(map[string][]*postgres.GameRecord),
	}
}

// --- sessions ---

func (s *Store) InsertSession(ctx context.Context, session *postgres.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = cloneSession(session)
	s.entries[session.ID] = make(map[string]*postgres.QueueEntry)
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session *postgres.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Updating a closed-and-dropped session must not resurrect it
	if _, ok := s.sessions[session.ID]; ok {
		s.sessions[session.ID] = cloneSession(session)
	}
	return nil
}

func (s *Store) ActiveSessionByCode(ctx context.Context, tableCode string) (*postgres.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.TableCode == tableCode && session.Status == postgres.SessionActive {
			return cloneSession(session), nil
		}
	}
	return nil, nil
}

func (s *Store) ActiveSessions(ctx context.Context) ([]*postgres.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*postgres.Session
	for _, session := range s.sessions {
		if session.Status == postgres.SessionActive {
			out = append(out, cloneSession(session))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CloseSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Nothing reads closed sessions, so drop the row too instead of letting
	// the map grow forever as tables churn
	delete(s.sessions, sessionID)
	delete(s.entries, sessionID)
	delete(s.games, sessionID)
	return nil
}

// --- queue entries ---

func (s *Store) InsertEntry(ctx context.Context, entry *postgres.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.entries[entry.SessionID]
	if !ok {
		bucket = make(map[string]*postgres.QueueEntry)
		s.entries[entry.SessionID] = bucket
	}
	bucket[entry.ID] = cloneEntry(entry)
	return nil
}

func (s *Store) UpdateEntries(ctx context.Context, entries ...*postgres.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		if bucket, ok := s.entries[entry.SessionID]; ok {
			bucket[entry.ID] = cloneEntry(entry)
		}
	}
	return nil
}

func (s *Store) EntriesBySession(ctx context.Context, sessionID string) ([]*postgres.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.entries[sessionID]
	out := make([]*postgres.QueueEntry, 0, len(bucket))
	for _, entry := range bucket {
		out = append(out, cloneEntry(entry))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- game records ---

func (s *Store) InsertGame(ctx context.Context, game *postgres.GameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.SessionID] = append(s.games[game.SessionID], cloneGame(game))
	return nil
}

func (s *Store) DeleteGame(ctx context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sessionID, records := range s.games {
		for i, g := range records {
			if g.ID == gameID {
				s.games[sessionID] = append(records[:i], records[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (s *Store) LatestGame(ctx context.Context, sessionID string) (*postgres.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestGame(sessionID, false), nil
}

func (s *Store) LatestGameWithSnapshot(ctx context.Context, sessionID string) (*postgres.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestGame(sessionID, true), nil
}

func (s *Store) latestGame(sessionID string, needSnapshot bool) *postgres.GameRecord {
	records := s.games[sessionID]
	for i := len(records) - 1; i >= 0; i-- {
		if needSnapshot && !records[i].HasSnapshot() {
			continue
		}
		return cloneGame(records[i])
	}
	return nil
}

func (s *Store) GamesBySession(ctx context.Context, sessionID string) ([]*postgres.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.games[sessionID]
	out := make([]*postgres.GameRecord, 0, len(records))
	for _, g := range records {
		out = append(out, cloneGame(g))
	}
	return out, nil
}

func (s *Store) PruneSnapshots(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pruned int64
	for _, records := range s.games {
		for _, g := range records {
			if g.HasSnapshot() && g.CreatedAt.Before(before) {
				g.Snapshot = nil
				pruned++
			}
		}
	}
	return pruned, nil
}

// --- clone helpers ---

func cloneSession(s *postgres.Session) *postgres.Session {
	c := *s
	c.Entries = nil
	c.Games = nil
	return &c
}

func cloneEntry(e *postgres.QueueEntry) *postgres.QueueEntry {
	c := *e
	c.Session = postgres.Session{}
	c.AskedAt = cloneTime(e.AskedAt)
	c.ConfirmedAt = cloneTime(e.ConfirmedAt)
	c.MiaAt = cloneTime(e.MiaAt)
	c.GhostedAt = cloneTime(e.GhostedAt)
	c.RemovedAt = cloneTime(e.RemovedAt)
	return &c
}

func cloneGame(g *postgres.GameRecord) *postgres.GameRecord {
	c := *g
	c.Session = postgres.Session{}
	if g.Snapshot != nil {
		c.Snapshot = append(c.Snapshot[:0:0], g.Snapshot...)
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
