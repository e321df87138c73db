package sync

import (
	"context"
	"log"
	"time"

	"Cueline/services/queue"
)

/*
 * Sweeper is the external scheduler of the queue core. On every tick it runs
 * the confirmation heat-map over each active session, expires stale
 * sessions and prunes old undo snapshots. All of those passes are
 * idempotent, so overlapping triggers are harmless.
 */
type Sweeper struct {
	service  *queue.Service
	interval time.Duration
}

// NewSweeper creates a new instance of the background sweeper
func NewSweeper(service *queue.Service, interval time.Duration) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
	}
}

// Run blocks, sweeping on an interval until the context is canceled.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	log.Printf("[SWEEP] Sweeper running every %s", sw.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[SWEEP] Sweeper stopped")
			return
		case <-ticker.C:
			sw.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single pass over every active session.
func (sw *Sweeper) SweepOnce(ctx context.Context) {
	sessions, err := sw.service.ActiveSessions(ctx)
	if err != nil {
		log.Printf("[SWEEP] Error listing active sessions: %v", err)
		return
	}

	for _, session := range sessions {
		evs, err := sw.service.CheckConfirmations(ctx, session.TableCode)
		if err != nil {
			log.Printf("[SWEEP] Error checking confirmations for table %s: %v", session.TableCode, err)
			continue
		}
		if len(evs) > 0 {
			log.Printf("[SWEEP] Table %s: %d confirmation transitions", session.TableCode, len(evs))
		}
	}

	expired, err := sw.service.ExpireStale(ctx)
	if err != nil {
		log.Printf("[SWEEP] Error expiring stale sessions: %v", err)
	} else if expired > 0 {
		log.Printf("[SWEEP] Expired %d stale sessions", expired)
	}

	pruned, err := sw.service.PruneSnapshots(ctx)
	if err != nil {
		log.Printf("[SWEEP] Error pruning snapshots: %v", err)
	} else if pruned > 0 {
		log.Printf("[SWEEP] Pruned %d old undo snapshots", pruned)
	}
}
