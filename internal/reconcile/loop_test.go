package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/visitsync/internal/apply"
	"github.com/example/visitsync/internal/browser"
	"github.com/example/visitsync/internal/config"
	"github.com/example/visitsync/internal/ledger"
	"github.com/example/visitsync/internal/reservation"
)

type fakeSource struct {
	refreshes int
	err       error
}

func (f *fakeSource) Refresh(ctx context.Context) error {
	f.refreshes++
	return f.err
}

type fakeExtractor struct {
	rs  []reservation.Reservation
	err error
}

func (f *fakeExtractor) Extract(ctx context.Context) ([]reservation.Reservation, error) {
	return f.rs, f.err
}

type fakeApplier struct {
	outcomes map[string]apply.Outcome
	applied  []string
}

func (f *fakeApplier) Apply(ctx context.Context, r reservation.Reservation) apply.Outcome {
	f.applied = append(f.applied, r.Key())
	if out, ok := f.outcomes[r.Key()]; ok {
		return out
	}
	return apply.Outcome{Applied: true}
}

type memLedger struct{ keys map[string]struct{} }

func newMemLedger() *memLedger { return &memLedger{keys: map[string]struct{}{}} }

func (m *memLedger) Has(key string) bool { _, ok := m.keys[key]; return ok }
func (m *memLedger) Add(key string) error {
	m.keys[key] = struct{}{}
	return nil
}
func (m *memLedger) Len() int { return len(m.keys) }

type attempt struct {
	key, name, reason string
	applied           bool
}

type memHistory struct {
	rows   []attempt
	cycles int
}

func (m *memHistory) RecordAttempt(ctx context.Context, key, name string, applied bool, reason string) error {
	m.rows = append(m.rows, attempt{key: key, name: name, applied: applied, reason: reason})
	return nil
}

func (m *memHistory) RecordCycle(ctx context.Context, extracted, applied, failed, skipped int) error {
	m.cycles++
	return nil
}

func res(name, phone, sched string) reservation.Reservation {
	return reservation.Reservation{Name: name, Phone: phone, ScheduleText: sched}
}

func newLoop(src SourceSession, ext Extractor, app Applier, led ledger.Ledger) *Loop {
	return &Loop{
		Source:   src,
		Extract:  ext,
		Apply:    app,
		Ledger:   led,
		Policy:   config.PolicyRetry,
		Interval: time.Minute,
		Log:      slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

func TestCycleAppliesUnseenOnce(t *testing.T) {
	r1 := res("Kim", "01012345678", "2024.06.10 (월) 오전 10:30")
	r2 := res("Lee", "01087654321", "2024.06.11 (화) 오후 2:00")

	src := &fakeSource{}
	app := &fakeApplier{}
	led := newMemLedger()
	l := newLoop(src, &fakeExtractor{rs: []reservation.Reservation{r1, r2}}, app, led)

	require.NoError(t, l.cycle(context.Background()))
	assert.Equal(t, []string{r1.Key(), r2.Key()}, app.applied)
	assert.Equal(t, 2, led.Len())

	// Same listing again: the ledger shields both reservations.
	require.NoError(t, l.cycle(context.Background()))
	assert.Len(t, app.applied, 2, "no re-apply on the second cycle")

	st := l.Stats()
	assert.Equal(t, 2, st.Cycles)
	assert.Equal(t, 2, st.Applied)
	assert.Equal(t, 2, st.Skipped)
}

func TestCycleRetryPolicyLeavesFailureUnrecorded(t *testing.T) {
	r := res("Kim", "01012345678", "2024.06.10 (월) 오전 10:30")
	app := &fakeApplier{outcomes: map[string]apply.Outcome{
		r.Key(): {Reason: "save control disabled"},
	}}
	led := newMemLedger()
	l := newLoop(&fakeSource{}, &fakeExtractor{rs: []reservation.Reservation{r}}, app, led)

	require.NoError(t, l.cycle(context.Background()))
	assert.Zero(t, led.Len(), "retry policy keeps the key out of the ledger")

	require.NoError(t, l.cycle(context.Background()))
	assert.Len(t, app.applied, 2, "failed reservation retried next cycle")
}

func TestCycleMarkPolicyRecordsFailure(t *testing.T) {
	r := res("Kim", "01012345678", "2024.06.10 (월) 오전 10:30")
	app := &fakeApplier{outcomes: map[string]apply.Outcome{
		r.Key(): {Reason: "save control disabled"},
	}}
	led := newMemLedger()
	l := newLoop(&fakeSource{}, &fakeExtractor{rs: []reservation.Reservation{r}}, app, led)
	l.Policy = config.PolicyMark

	require.NoError(t, l.cycle(context.Background()))
	assert.Equal(t, 1, led.Len())

	require.NoError(t, l.cycle(context.Background()))
	assert.Len(t, app.applied, 1, "marked failure never retried")
}

type flushFailLedger struct{ memLedger }

func (f *flushFailLedger) Add(key string) error {
	f.keys[key] = struct{}{}
	return errors.New("disk full")
}

func TestCycleHoldsDedupInMemoryWhenPersistFails(t *testing.T) {
	r := res("Kim", "01012345678", "2024.06.10 (월) 오전 10:30")
	app := &fakeApplier{}
	led := &flushFailLedger{memLedger{keys: map[string]struct{}{}}}
	l := newLoop(&fakeSource{}, &fakeExtractor{rs: []reservation.Reservation{r}}, app, led)

	require.NoError(t, l.cycle(context.Background()))
	require.NoError(t, l.cycle(context.Background()))
	assert.Len(t, app.applied, 1, "in-memory entry still deduplicates this process")
}

func TestCycleSurvivesTransientErrors(t *testing.T) {
	src := &fakeSource{err: errors.New("navigation timed out")}
	l := newLoop(src, &fakeExtractor{}, &fakeApplier{}, newMemLedger())

	require.NoError(t, l.cycle(context.Background()))
	assert.Equal(t, "navigation timed out", l.Stats().LastError)
}

func TestCycleEndsOnDeadBrowser(t *testing.T) {
	src := &fakeSource{err: browser.ErrClosed}
	l := newLoop(src, &fakeExtractor{}, &fakeApplier{}, newMemLedger())

	err := l.cycle(context.Background())
	require.ErrorIs(t, err, browser.ErrClosed)
}

func TestCycleWritesAttemptHistory(t *testing.T) {
	ok := res("Kim", "01012345678", "2024.06.10 (월) 오전 10:30")
	bad := res("Lee", "01087654321", "2024.06.11 (화) 오후 2:00")
	app := &fakeApplier{outcomes: map[string]apply.Outcome{
		ok.Key():  {Applied: true},
		bad.Key(): {Reason: "patient search field not visible"},
	}}
	hist := &memHistory{}
	l := newLoop(&fakeSource{}, &fakeExtractor{rs: []reservation.Reservation{ok, bad}}, app, newMemLedger())
	l.History = hist

	require.NoError(t, l.cycle(context.Background()))
	require.Len(t, hist.rows, 2)
	assert.True(t, hist.rows[0].applied)
	assert.Equal(t, "Kim", hist.rows[0].name)
	assert.False(t, hist.rows[1].applied)
	assert.Equal(t, "patient search field not visible", hist.rows[1].reason)
	assert.Equal(t, 1, hist.cycles)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := newLoop(&fakeSource{}, &fakeExtractor{}, &fakeApplier{}, newMemLedger())
	l.Interval = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancel")
	}
	assert.GreaterOrEqual(t, l.Stats().Cycles, 1)
}
