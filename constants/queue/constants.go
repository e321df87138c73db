package queue_constants

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Confirmation heat-map thresholds (latest policy: 5 min mia, 10 min ghost,
// recovery always allowed, never any auto-removal)
const DefaultMiaAfter = 5 * time.Minute
const DefaultGhostAfter = 10 * time.Minute

// Ask window: positions asked to confirm presence. The king (1) is at the
// table and the challenger (2) is presumed already racking up, so asking
// starts at 3.
const DefaultAskFrom = 3
const DefaultAskTo = 5

// Undo and game-log retention
const (
	DefaultUndoWindow        = 60 * time.Second
	DefaultSnapshotRetention = 12 * time.Hour
	// Games shorter than this don't count toward the rolling average
	DefaultMinCountedGame = 60 * time.Second
)

// Sessions idle longer than this are expired by the sweeper
const DefaultSessionTTL = 6 * time.Hour

const DefaultSweepInterval = 30 * time.Second

const TableCodeLength = 4

// Policy bundles every tunable of the queue core. Zero-config deployments
// just use Defaults(); env vars override individual knobs.
type Policy struct {
	MiaAfter          time.Duration
	GhostAfter        time.Duration
	AskFrom           int
	AskTo             int
	UndoWindow        time.Duration
	SnapshotRetention time.Duration
	MinCountedGame    time.Duration
	SessionTTL        time.Duration
}

// Defaults returns the stock policy.
func Defaults() Policy {
	return Policy{
		MiaAfter:          DefaultMiaAfter,
		GhostAfter:        DefaultGhostAfter,
		AskFrom:           DefaultAskFrom,
		AskTo:             DefaultAskTo,
		UndoWindow:        DefaultUndoWindow,
		SnapshotRetention: DefaultSnapshotRetention,
		MinCountedGame:    DefaultMinCountedGame,
		SessionTTL:        DefaultSessionTTL,
	}
}

// FromEnv returns Defaults() with any QUEUE_* env overrides applied.
func FromEnv() Policy {
	p := Defaults()
	p.MiaAfter = envDuration("QUEUE_MIA_AFTER", p.MiaAfter)
	p.GhostAfter = envDuration("QUEUE_GHOST_AFTER", p.GhostAfter)
	p.AskFrom = envInt("QUEUE_ASK_FROM", p.AskFrom)
	p.AskTo = envInt("QUEUE_ASK_TO", p.AskTo)
	p.UndoWindow = envDuration("QUEUE_UNDO_WINDOW", p.UndoWindow)
	p.SnapshotRetention = envDuration("QUEUE_SNAPSHOT_RETENTION", p.SnapshotRetention)
	p.MinCountedGame = envDuration("QUEUE_MIN_COUNTED_GAME", p.MinCountedGame)
	p.SessionTTL = envDuration("QUEUE_SESSION_TTL", p.SessionTTL)
	return p
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Invalid %s=%q, keeping default %d", key, raw, fallback)
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Invalid %s=%q, keeping default %s", key, raw, fallback)
		return fallback
	}
	return d
}
