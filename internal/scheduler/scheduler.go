// Package scheduler materializes due recurring templates into ledger
// entries. One long-lived loop per process scans on a fixed interval;
// each due template is processed in its own transaction so a failure or
// a concurrent run never disturbs the rest of the batch.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"finledger/internal/core"
	"finledger/internal/services"
	"finledger/internal/storage"
)

type Scheduler struct {
	store    storage.Store
	ledger   *services.LedgerService
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(store storage.Store, ledger *services.LedgerService, interval time.Duration) *Scheduler {
	return &Scheduler{
		store:    store,
		ledger:   ledger,
		interval: interval,
		now:      time.Now,
	}
}

// CycleStats summarizes one scan over the due templates.
type CycleStats struct {
	Generated   int
	Deactivated int
	Skipped     int
	Failed      int
}

// Start launches the background loop. Idempotent: calling Start on a
// running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
// Idempotent: stopping a stopped scheduler is a no-op. Any per-template
// transaction in progress completes or rolls back before Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	slog.Info("Recurring scheduler started", "interval", s.interval)

	// Initial scan on startup, then on every tick.
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Recurring scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	now := s.now().UTC()
	stats := s.RunCycle(ctx, now)
	slog.InfoContext(ctx, "Recurring cycle complete",
		"generated", stats.Generated,
		"deactivated", stats.Deactivated,
		"skipped", stats.Skipped,
		"failed", stats.Failed)
}

// RunCycle scans for due templates and materializes at most one
// occurrence per template. A template many periods overdue catches up
// one occurrence per cycle rather than backfilling every missed period
// at once; that bounds burst load and is deliberate.
func (s *Scheduler) RunCycle(ctx context.Context, now time.Time) CycleStats {
	var stats CycleStats

	var due []core.RecurringTemplate
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		due, err = tx.DueTemplates(ctx, now)
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list due templates", "error", err)
		stats.Failed++
		return stats
	}

	slog.InfoContext(ctx, "Processing due recurring templates",
		"due", len(due),
		"as_of", now.Format("2006-01-02"))

	for _, tmpl := range due {
		if ctx.Err() != nil {
			return stats
		}
		outcome, err := s.processTemplate(ctx, tmpl, now)
		if err != nil {
			// One broken template (deleted account, bad row) must not
			// abort the rest of the batch.
			slog.ErrorContext(ctx, "Failed to process recurring template",
				"template_id", tmpl.ID,
				"space_id", tmpl.SpaceID,
				"error", err)
			stats.Failed++
			continue
		}
		switch outcome {
		case outcomeGenerated:
			stats.Generated++
			slog.InfoContext(ctx, "Materialized entry from recurring template",
				"template_id", tmpl.ID,
				"kind", tmpl.Kind,
				"amount_cents", tmpl.Amount.Cents,
				"frequency", tmpl.Frequency)
		case outcomeDeactivated:
			stats.Deactivated++
			slog.InfoContext(ctx, "Deactivated expired recurring template",
				"template_id", tmpl.ID,
				"end_date", tmpl.EndDate)
		case outcomeSkipped:
			stats.Skipped++
		}
	}

	return stats
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeGenerated
	outcomeDeactivated
)

// processTemplate handles one due template inside one atomic unit. The
// template row is reloaded under the transaction and every write is
// guarded by its version, so of two overlapping runs exactly one
// generates the occurrence; the other observes the advanced cursor (or
// loses the version race) and skips.
func (s *Scheduler) processTemplate(ctx context.Context, tmpl core.RecurringTemplate, now time.Time) (outcome, error) {
	var out outcome
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		cur, err := tx.GetTemplate(ctx, tmpl.SpaceID, tmpl.ID)
		if err != nil {
			return err
		}
		// Concurrent deactivation between the scan and here.
		if !cur.IsActive {
			out = outcomeSkipped
			return nil
		}
		// End of life is checked before generation: the occurrence that
		// falls past the end date is never materialized.
		if cur.EndDate != nil && now.After(*cur.EndDate) {
			if err := tx.SetTemplateActive(ctx, cur.ID, false, cur.Version); err != nil {
				return err
			}
			out = outcomeDeactivated
			return nil
		}
		// A concurrent cycle already advanced the cursor.
		if cur.NextDueDate.After(now) {
			out = outcomeSkipped
			return nil
		}

		entry := &core.Entry{
			ID:               uuid.NewString(),
			SpaceID:          cur.SpaceID,
			Kind:             cur.Kind,
			AccountID:        cur.AccountID,
			CategoryID:       cur.CategoryID,
			Amount:           cur.Amount,
			Date:             now,
			Notes:            fmt.Sprintf("Generated automatically from recurring %s %s", cur.Kind, cur.ID),
			AddedByUserID:    cur.CreatedByUserID,
			SourceTemplateID: cur.ID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		// Same create path as manual entries, so the account balance
		// moves consistently.
		if err := s.ledger.ApplyCreate(ctx, tx, entry); err != nil {
			return err
		}

		next, err := core.NextDue(cur.NextDueDate, cur.Frequency)
		if err != nil {
			return err
		}
		if err := tx.AdvanceTemplate(ctx, cur.ID, next, now, cur.Version); err != nil {
			return err
		}
		out = outcomeGenerated
		return nil
	})
	if err != nil {
		// A version conflict means a concurrent run took this
		// occurrence; that is the idempotency working, not a failure.
		if errors.Is(err, core.ErrConflict) {
			return outcomeSkipped, nil
		}
		return outcomeSkipped, err
	}
	return out, nil
}
