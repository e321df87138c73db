package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"Cueline/models/postgres"
	"Cueline/monitoring"
)

// Outcome of a finished game.
type Outcome string

const (
	// KingRetains: the king wins and keeps the table, the challenger is out
	KingRetains Outcome = "king_retains"
	// ChallengerDethrones: the challenger wins and takes the table
	ChallengerDethrones Outcome = "challenger_dethrones"
)

// GameSummary is what RecordResult hands back to the caller.
type GameSummary struct {
	Winner   string        `json:"winner"`
	Loser    string        `json:"loser"`
	Streak   int           `json:"streak"`
	Duration time.Duration `json:"duration"`
	Counted  bool          `json:"counted"`
}

// RecordResult applies a game outcome: streak bookkeeping, elimination of
// the loser, promotion of the next challenger, and a game record carrying
// the full pre-result snapshot for undo.
func (s *Service) RecordResult(ctx context.Context, tableCode string, outcome Outcome) (*GameSummary, error) {
	l := s.tableLock(tableCode)
	l.Lock()
	defer l.Unlock()

	session, err := s.store.ActiveSessionByCode(ctx, tableCode)
	if err != nil {
		return nil, fmt.Errorf("error looking up active session for table %s: %v", tableCode, err)
	}
	if session == nil {
		return nil, ErrNeedTwoPlayers
	}
	entries, err := s.store.EntriesBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading entries for session %s: %v", session.ID, err)
	}

	active := activeEntries(entries)
	king := entryAtPosition(active, 1)
	challenger := entryAtPosition(active, 2)
	if len(active) < 2 || king == nil || challenger == nil {
		return nil, ErrNeedTwoPlayers
	}

	// Snapshot every live entry before touching anything, so undo can put
	// the whole queue back exactly
	snapshot := buildSnapshot(active)

	now := s.Now()
	summary := &GameSummary{}
	switch outcome {
	case KingRetains:
		king.WinStreak++
		challenger.Status = postgres.StatusEliminated
		challenger.RemovedAt = &now
		summary.Winner = king.DisplayName
		summary.Loser = challenger.DisplayName
		summary.Streak = king.WinStreak
	case ChallengerDethrones:
		king.Status = postgres.StatusEliminated
		king.RemovedAt = &now
		challenger.Position = 1
		challenger.WinStreak = 1
		challenger.ResetConfirmation()
		summary.Winner = challenger.DisplayName
		summary.Loser = king.DisplayName
		summary.Streak = challenger.WinStreak
	default:
		return nil, fmt.Errorf("unknown outcome %q", outcome)
	}

	// The compactor promotes the next FIFO entry into the vacated slot
	compact(entries)

	prev, err := s.store.LatestGame(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading previous game for session %s: %v", session.ID, err)
	}
	if prev != nil {
		summary.Duration = now.Sub(prev.CreatedAt)
	}
	summary.Counted = prev != nil && summary.Duration >= s.policy.MinCountedGame

	encoded, err := postgres.EncodeSnapshot(snapshot)
	if err != nil {
		return nil, err
	}
	record := &postgres.GameRecord{
		ID:              uuid.NewString(),
		SessionID:       session.ID,
		WinnerName:      summary.Winner,
		LoserName:       summary.Loser,
		WinStreak:       summary.Streak,
		DurationSeconds: int(summary.Duration.Seconds()),
		Counted:         summary.Counted,
		Snapshot:        encoded,
		CreatedAt:       now,
	}
	if err := s.store.InsertGame(ctx, record); err != nil {
		return nil, fmt.Errorf("error inserting game record: %v", err)
	}
	if err := s.finishMutation(ctx, session, entries, "record_result"); err != nil {
		return nil, err
	}
	if summary.Counted {
		monitoring.ObserveGameDuration(tableCode, summary.Duration)
	}
	return summary, nil
}

// SessionStats is the rolling stats view for a table's game log.
type SessionStats struct {
	GamesPlayed int `json:"games_played"`
	// Average length of counted games only; rapid double-taps are filtered
	AvgGameSeconds float64 `json:"avg_game_seconds"`
	KingName       string  `json:"king_name,omitempty"`
	KingStreak     int     `json:"king_streak,omitempty"`
}

// Stats computes the table's game stats and current king.
func (s *Service) Stats(ctx context.Context, tableCode string) (*SessionStats, error) {
	session, err := s.store.ActiveSessionByCode(ctx, tableCode)
	if err != nil {
		return nil, fmt.Errorf("error looking up active session for table %s: %v", tableCode, err)
	}
	stats := &SessionStats{}
	if session == nil {
		return stats, nil
	}

	games, err := s.store.GamesBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading games for session %s: %v", session.ID, err)
	}
	stats.GamesPlayed = len(games)
	counted, total := 0, 0
	for _, g := range games {
		if g.Counted {
			counted++
			total += g.DurationSeconds
		}
	}
	if counted > 0 {
		stats.AvgGameSeconds = float64(total) / float64(counted)
	}

	entries, err := s.store.EntriesBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading entries for session %s: %v", session.ID, err)
	}
	if king := entryAtPosition(activeEntries(entries), 1); king != nil {
		stats.KingName = king.DisplayName
		stats.KingStreak = king.WinStreak
	}
	return stats, nil
}

func entryAtPosition(active []*postgres.QueueEntry, position int) *postgres.QueueEntry {
	for _, e := range active {
		if e.Position == position {
			return e
		}
	}
	return nil
}

func buildSnapshot(active []*postgres.QueueEntry) postgres.Snapshot {
	snap := postgres.Snapshot{Version: postgres.SnapshotVersion}
	for _, e := range active {
		snap.Entries = append(snap.Entries, postgres.SnapshotEntry{
			EntryID:     e.ID,
			Position:    e.Position,
			Status:      e.Status,
			WinStreak:   e.WinStreak,
			AskedAt:     copyTime(e.AskedAt),
			ConfirmedAt: copyTime(e.ConfirmedAt),
			MiaAt:       copyTime(e.MiaAt),
			GhostedAt:   copyTime(e.GhostedAt),
		})
	}
	return snap
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
