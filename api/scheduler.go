/*
scheduler.go - Periodic ledger/event audit

PURPOSE:
  Periodically audits every tracked room for booking events that are not
  backed by booked or pending days (the trace left by a fail-open booking
  deletion), and records each run for the /api/audit/runs endpoint.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - Each run is recorded as running, then completed or failed

USAGE:
  scheduler := NewAuditScheduler(store, concierge, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunAudit endpoint (manual audit)
  - concierge/query.go: Audit
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/room-concierge/concierge"
	"github.com/warp/room-concierge/store/sqlite"
)

// AuditScheduler runs the concierge audit on a ticker.
type AuditScheduler struct {
	Store         *sqlite.Store
	Concierge     *concierge.Concierge
	CheckInterval time.Duration
	Enabled       bool
	Logger        zerolog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAuditScheduler creates a new scheduler with an hourly interval.
func NewAuditScheduler(store *sqlite.Store, c *concierge.Concierge, logger zerolog.Logger) *AuditScheduler {
	return &AuditScheduler{
		Store:         store,
		Concierge:     c,
		CheckInterval: time.Hour,
		Enabled:       true,
		Logger:        logger.With().Str("component", "audit-scheduler").Logger(),
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (as *AuditScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		as.Logger.Info().Msg("disabled, not starting")
		return
	}
	if as.ticker != nil {
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.wg.Add(1)
	go as.run()

	as.Logger.Info().Dur("interval", as.CheckInterval).Msg("started")
}

// Stop stops the scheduler and waits for an in-flight run.
func (as *AuditScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		close(as.stop)
		as.wg.Wait()
		as.ticker = nil
		as.Logger.Info().Msg("stopped")
	}
}

func (as *AuditScheduler) run() {
	defer as.wg.Done()

	as.RunNow(context.Background())

	for {
		select {
		case <-as.ticker.C:
			as.RunNow(context.Background())
		case <-as.stop:
			return
		}
	}
}

// RunNow audits immediately and records the run.
func (as *AuditScheduler) RunNow(ctx context.Context) (sqlite.AuditRun, error) {
	run := sqlite.AuditRun{
		ID:        uuid.NewString(),
		Status:    "running",
		StartedAt: time.Now(),
	}
	if err := as.Store.SaveAuditRun(ctx, run); err != nil {
		as.Logger.Error().Err(err).Msg("save audit run")
		return run, fmt.Errorf("failed to save run record: %w", err)
	}

	found, err := as.Concierge.Audit(ctx)
	completed := time.Now()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		as.Logger.Error().Err(err).Str("run_id", run.ID).Msg("audit failed")
	} else {
		run.Status = "completed"
		run.Findings = len(found)
	}

	if saveErr := as.Store.SaveAuditRun(ctx, run); saveErr != nil {
		as.Logger.Error().Err(saveErr).Str("run_id", run.ID).Msg("update audit run")
		if err == nil {
			err = fmt.Errorf("failed to update run record: %w", saveErr)
		}
	}
	return run, err
}

// NextRunTime returns when the next scheduled audit will occur.
func (as *AuditScheduler) NextRunTime() time.Time {
	return time.Now().Add(as.CheckInterval)
}
