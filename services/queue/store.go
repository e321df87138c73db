package queue

import (
	"context"
	"time"

	"Cueline/models/postgres"
)

// Store is the persistence port of the queue core. The state machine is
// written once against this interface; storage/postgres backs it with GORM
// and storage/memory keeps everything in maps for tests and single-node
// deployments without a database.
//
// Lookup methods return (nil, nil) when the row simply does not exist;
// errors are reserved for storage faults.
type Store interface {
	// Sessions
	InsertSession(ctx context.Context, session *postgres.Session) error
	UpdateSession(ctx context.Context, session *postgres.Session) error
	ActiveSessionByCode(ctx context.Context, tableCode string) (*postgres.Session, error)
	ActiveSessions(ctx context.Context) ([]*postgres.Session, error)
	// CloseSession marks the session closed and wipes its entries and
	// game records
	CloseSession(ctx context.Context, sessionID string) error

	// Queue entries. EntriesBySession returns every entry including the
	// logically deleted ones; callers filter as needed.
	InsertEntry(ctx context.Context, entry *postgres.QueueEntry) error
	UpdateEntries(ctx context.Context, entries ...*postgres.QueueEntry) error
	EntriesBySession(ctx context.Context, sessionID string) ([]*postgres.QueueEntry, error)

	// Game records
	InsertGame(ctx context.Context, game *postgres.GameRecord) error
	DeleteGame(ctx context.Context, gameID string) error
	LatestGame(ctx context.Context, sessionID string) (*postgres.GameRecord, error)
	LatestGameWithSnapshot(ctx context.Context, sessionID string) (*postgres.GameRecord, error)
	GamesBySession(ctx context.Context, sessionID string) ([]*postgres.GameRecord, error)
	// PruneSnapshots drops the snapshot column of records created before
	// the cutoff, keeping the records themselves for stats
	PruneSnapshots(ctx context.Context, before time.Time) (int64, error)
}
