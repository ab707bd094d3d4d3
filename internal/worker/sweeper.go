// Package worker runs the background maintenance loops.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/pmicianjur/pelantikan-api/internal/repository"
)

// Sweeper periodically reclaims abandoned state: staged submissions
// whose payment never settled, and plots still held by registrations
// stuck in PENDING_PAYMENT. Neither cleanup is latency-sensitive, so
// one ticker covers both.
type Sweeper struct {
	Pending    *repository.PendingTransactionRepo
	Plots      *repository.PlotRepo
	Interval   time.Duration
	PendingTTL time.Duration
}

// NewSweeper constructs a Sweeper.
func NewSweeper(pending *repository.PendingTransactionRepo, plots *repository.PlotRepo, interval, pendingTTL time.Duration) *Sweeper {
	if pending == nil || plots == nil {
		panic("nil dependency passed to NewSweeper")
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{Pending: pending, Plots: plots, Interval: interval, PendingTTL: pendingTTL}
}

// Run sweeps on a ticker until the context is cancelled. Call it in its
// own goroutine; it performs one sweep immediately on start.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now().UTC()

	if n, err := s.Pending.DeleteExpired(ctx, now); err != nil {
		log.Printf("sweeper: purge expired pending transactions failed: %v", err)
	} else if n > 0 {
		log.Printf("sweeper: purged %d expired pending transaction(s)", n)
	}

	if n, err := s.Plots.ReleaseOrphans(ctx, now.Add(-s.PendingTTL)); err != nil {
		log.Printf("sweeper: release orphaned plots failed: %v", err)
	} else if n > 0 {
		log.Printf("sweeper: released %d orphaned plot(s)", n)
	}
}
