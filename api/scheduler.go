/*
scheduler.go - Automated overdue sweep scheduler

PURPOSE:
  Periodically runs the overdue sweeper so past-due obligations are
  promoted without waiting for a manual /api/admin/sweep call.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each run is idempotent; a run that promotes nothing is normal
  - Per-row sweep errors are logged and never stop the scheduler

CONFIGURATION:
  - Interval: How often to sweep (default: 1 hour)
  - Enabled:  Whether scheduler is active (default: true)

USAGE:
  scheduler := NewSweepScheduler(sweeper)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerSweep endpoint (manual sweep)
  - ledger/sweeper.go: The sweep itself
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/atrium/property-ledger/ledger"
	"github.com/atrium/property-ledger/metrics"
)

// SweepScheduler runs the overdue sweeper on a fixed interval.
type SweepScheduler struct {
	Sweeper  *ledger.Sweeper
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweepScheduler creates a new scheduler.
func NewSweepScheduler(sweeper *ledger.Sweeper) *SweepScheduler {
	return &SweepScheduler{
		Sweeper:  sweeper,
		Interval: 1 * time.Hour,
		Enabled:  true,
		stop:     make(chan bool),
	}
}

// Start begins the scheduler.
func (ss *SweepScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		slog.Info("sweep scheduler disabled, not starting")
		return
	}

	ss.ticker = time.NewTicker(ss.Interval)
	ss.wg.Add(1)

	go ss.run()

	slog.Info("sweep scheduler started", "interval", ss.Interval)
}

// Stop stops the scheduler.
func (ss *SweepScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		slog.Info("sweep scheduler stopped")
	}
}

func (ss *SweepScheduler) run() {
	defer ss.wg.Done()

	// Run immediately on start
	ss.sweep()

	for {
		select {
		case <-ss.ticker.C:
			ss.sweep()
		case <-ss.stop:
			return
		}
	}
}

func (ss *SweepScheduler) sweep() {
	ctx := context.Background()
	now := time.Now()

	res, err := ss.Sweeper.Sweep(ctx, now)
	if err != nil {
		slog.Error("overdue sweep failed", "err", err)
		return
	}

	metrics.SweepRuns.Inc()
	metrics.ObligationsPromoted.Add(float64(res.Promoted))

	for _, e := range res.Errors {
		slog.Warn("sweep row error", "err", e)
	}
	if res.Promoted > 0 || len(res.Errors) > 0 {
		slog.Info("overdue sweep completed",
			"examined", res.Examined,
			"promoted", res.Promoted,
			"errors", len(res.Errors))
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (ss *SweepScheduler) RunNow() {
	ss.sweep()
}
