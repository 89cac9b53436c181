// Package reconcile runs the polling loop that keeps the target in step
// with the source: refresh the listing, extract actionable reservations,
// apply every one the ledger has not seen, record the outcome.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/example/visitsync/internal/apply"
	"github.com/example/visitsync/internal/browser"
	"github.com/example/visitsync/internal/config"
	"github.com/example/visitsync/internal/ledger"
	"github.com/example/visitsync/internal/reservation"
)

// SourceSession refreshes the source listing before each extraction pass.
type SourceSession interface {
	Refresh(ctx context.Context) error
}

// Extractor reads the refreshed listing.
type Extractor interface {
	Extract(ctx context.Context) ([]reservation.Reservation, error)
}

// Applier drives one reservation through the target's booking dialog.
type Applier interface {
	Apply(ctx context.Context, r reservation.Reservation) apply.Outcome
}

// History receives an audit row per attempt and a summary per cycle.
// Optional; failures are logged and never block the loop.
type History interface {
	RecordAttempt(ctx context.Context, key, name string, applied bool, reason string) error
	RecordCycle(ctx context.Context, extracted, applied, failed, skipped int) error
}

// Stats is a snapshot of loop counters for the status endpoint.
type Stats struct {
	Cycles    int       `json:"cycles"`
	Extracted int       `json:"extracted_total"`
	Applied   int       `json:"applied_total"`
	Failed    int       `json:"failed_total"`
	Skipped   int       `json:"skipped_total"`
	LastCycle time.Time `json:"last_cycle"`
	LastError string    `json:"last_error,omitempty"`
}

type Loop struct {
	Source  SourceSession
	Extract Extractor
	Apply   Applier
	Ledger  ledger.Ledger
	History History // may be nil

	// Policy decides what happens to a failed reservation: PolicyRetry
	// leaves it out of the ledger for the next cycle, PolicyMark records
	// it as processed anyway.
	Policy   string
	Interval time.Duration
	// Pause between consecutive reservations within one cycle.
	Pause time.Duration
	Log   *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// Run polls until the context is cancelled or the browser dies. The first
// cycle fires immediately.
func (l *Loop) Run(ctx context.Context) error {
	t := time.NewTicker(l.Interval)
	defer t.Stop()

	if err := l.cycle(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := l.cycle(ctx); err != nil {
				return err
			}
		}
	}
}

// cycle runs one reconciliation pass. Only a dead browser or a cancelled
// context ends the loop; every other failure is logged and waits for the
// next tick.
func (l *Loop) cycle(ctx context.Context) error {
	if err := l.Source.Refresh(ctx); err != nil {
		return l.cycleErr(ctx, "source refresh failed", err)
	}
	rs, err := l.Extract.Extract(ctx)
	if err != nil {
		return l.cycleErr(ctx, "extraction failed", err)
	}

	var applied, failed, skipped int
	for _, r := range rs {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := r.Key()
		if l.Ledger.Has(key) {
			skipped++
			continue
		}

		out := l.Apply.Apply(ctx, r)
		l.record(ctx, key, r.Name, out)
		if out.Applied {
			applied++
			if err := l.Ledger.Add(key); err != nil {
				// The key survives in memory, so dedup holds for this
				// process but is lost on restart.
				l.Log.Error("ledger persist failed, dedup lost on restart", "key", key, "err", err)
			}
		} else {
			failed++
			if l.Policy == config.PolicyMark {
				if err := l.Ledger.Add(key); err != nil {
					l.Log.Error("ledger write failed", "key", key, "err", err)
				}
			}
		}
		sleep(ctx, l.Pause)
	}

	l.mu.Lock()
	l.stats.Cycles++
	l.stats.Extracted += len(rs)
	l.stats.Applied += applied
	l.stats.Failed += failed
	l.stats.Skipped += skipped
	l.stats.LastCycle = time.Now()
	l.stats.LastError = ""
	l.mu.Unlock()

	if l.History != nil {
		if err := l.History.RecordCycle(ctx, len(rs), applied, failed, skipped); err != nil {
			l.Log.Warn("cycle history write failed", "err", err)
		}
	}
	l.Log.Info("cycle complete",
		"extracted", len(rs), "applied", applied, "failed", failed, "skipped", skipped,
		"ledger", l.Ledger.Len())
	return nil
}

func (l *Loop) cycleErr(ctx context.Context, msg string, err error) error {
	if errors.Is(err, browser.ErrClosed) || ctx.Err() != nil {
		return err
	}
	l.Log.Error(msg, "err", err)
	l.mu.Lock()
	l.stats.Cycles++
	l.stats.LastCycle = time.Now()
	l.stats.LastError = err.Error()
	l.mu.Unlock()
	return nil
}

func (l *Loop) record(ctx context.Context, key, name string, out apply.Outcome) {
	if l.History == nil {
		return
	}
	if err := l.History.RecordAttempt(ctx, key, name, out.Applied, out.Reason); err != nil {
		l.Log.Warn("attempt history write failed", "key", key, "err", err)
	}
}

// Stats returns a copy of the loop counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
