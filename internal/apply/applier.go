// Package apply drives the target's visit-creation dialog for one
// reservation at a time: a multi-step state machine with session recovery,
// an input-mode fallback and layered control-location strategies.
package apply

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/example/visitsync/internal/browser"
	"github.com/example/visitsync/internal/config"
	"github.com/example/visitsync/internal/diag"
	"github.com/example/visitsync/internal/reservation"
)

// Placeholder identity values for the new-patient path. The system only
// knows name and phone; these sentinels keep the required fields satisfied
// without fabricating real identity data.
const (
	placeholderBirth    = "000000"
	placeholderRegister = "0"
)

// Outcome is the applier's verdict for one reservation. Failures carry a
// human-readable reason; the reconciliation loop decides ledger disposition.
type Outcome struct {
	Applied bool
	Reason  string
}

func applied() Outcome             { return Outcome{Applied: true} }
func failed(reason string) Outcome { return Outcome{Reason: reason} }

type visitMode int

const (
	modeScheduled visitMode = iota
	modeWalkIn
)

// TargetSession is what the applier needs from the target session manager.
type TargetSession interface {
	LoggedOut(ctx context.Context) bool
	Reauthenticate(ctx context.Context) error
	GotoBase(ctx context.Context) error
}

type Applier struct {
	page   browser.Page
	target TargetSession
	sel    config.Selectors
	diag   *diag.Recorder
	log    *slog.Logger

	markers  reservation.Markers
	treatOff string
	treatOn  string

	stepDelay        time.Duration
	shortWait        time.Duration
	longWait         time.Duration
	autocompleteWait time.Duration

	now func() time.Time
}

func New(page browser.Page, target TargetSession, cfg config.Config, rec *diag.Recorder, log *slog.Logger) *Applier {
	return &Applier{
		page:             page,
		target:           target,
		sel:              cfg.Selectors,
		diag:             rec,
		log:              log,
		markers:          cfg.Markers,
		treatOff:         cfg.TreatmentOff,
		treatOn:          cfg.TreatmentOn,
		stepDelay:        cfg.StepDelay,
		shortWait:        5 * time.Second,
		longWait:         10 * time.Second,
		autocompleteWait: 1500 * time.Millisecond,
		now:              time.Now,
	}
}

// Apply runs the booking state machine for one reservation. On any failed
// terminal state the dialog is dismissed and the session navigated back to
// the base listing, so the next reservation starts from a known-good state.
func (a *Applier) Apply(ctx context.Context, r reservation.Reservation) Outcome {
	log := a.log.With("name", r.Name)
	out := a.run(ctx, log, r)
	if out.Applied {
		log.Info("visit applied")
	} else {
		log.Warn("visit failed", "reason", out.Reason)
		a.cleanup(ctx, log)
	}
	return out
}

func (a *Applier) run(ctx context.Context, log *slog.Logger, r reservation.Reservation) Outcome {
	sched, ok := reservation.ParseSchedule(r.ScheduleText, a.markers)
	if !ok {
		return failed(fmt.Sprintf("unparseable schedule text %q", r.ScheduleText))
	}

	// EnsureSession.
	if a.target.LoggedOut(ctx) {
		log.Warn("target session logged out, re-authenticating")
		if err := a.target.Reauthenticate(ctx); err != nil {
			return failed("re-authentication failed: " + err.Error())
		}
	}

	// OpenBookingDialog.
	if out, ok := a.openDialog(ctx, log); !ok {
		return out
	}
	a.pause(ctx)

	// ResolvePatient.
	if out, ok := a.resolvePatient(ctx, log, r); !ok {
		return out
	}

	// SelectVisitMode.
	mode, out, ok := a.selectMode(ctx, log, sched)
	if !ok {
		return out
	}

	// SelectDateTime + Confirm, scheduled mode only.
	if mode == modeScheduled {
		if out, ok := a.selectDateTime(ctx, log, sched); !ok {
			return out
		}
		if a.page.WaitVisible(ctx, a.sel.TimeConfirm, a.shortWait) {
			if err := a.page.Click(ctx, a.sel.TimeConfirm, true); err != nil {
				log.Warn("time confirm control did not accept the click", "err", err)
			}
		}
	}

	a.setTreatmentItem(ctx, log)
	a.pause(ctx)

	return a.save(ctx, log)
}

func (a *Applier) openDialog(ctx context.Context, log *slog.Logger) (Outcome, bool) {
	if a.page.WaitVisible(ctx, a.sel.BookingOpen, a.shortWait) {
		if err := a.page.Click(ctx, a.sel.BookingOpen, true); err == nil {
			return Outcome{}, true
		}
	}
	// The control can be missing because the session quietly expired
	// between polls; check for that before giving up.
	if !a.target.LoggedOut(ctx) {
		return failed("create-visit control not found"), false
	}
	log.Warn("logged out while opening booking dialog, re-authenticating")
	if err := a.target.Reauthenticate(ctx); err != nil {
		return failed("re-authentication failed: " + err.Error()), false
	}
	if a.page.WaitVisible(ctx, a.sel.BookingOpen, a.longWait) {
		if err := a.page.Click(ctx, a.sel.BookingOpen, true); err == nil {
			return Outcome{}, true
		}
	}
	return failed("create-visit control not found after re-authentication"), false
}

func (a *Applier) resolvePatient(ctx context.Context, log *slog.Logger, r reservation.Reservation) (Outcome, bool) {
	if !a.page.WaitVisible(ctx, a.sel.PatientSearch, a.longWait) {
		return failed("patient search field not visible"), false
	}
	if err := a.page.Fill(ctx, a.sel.PatientSearch, r.Phone); err != nil {
		return failed("patient search fill failed: " + err.Error()), false
	}
	sleep(ctx, a.autocompleteWait)

	if a.page.WaitVisible(ctx, a.sel.Autocomplete, a.autocompleteWait) {
		if err := a.page.Click(ctx, a.sel.Autocomplete, true); err == nil {
			log.Info("existing patient selected from autocomplete")
			return Outcome{}, true
		}
	}

	// New-patient path.
	log.Info("no autocomplete match, entering patient manually")
	if err := a.page.Click(ctx, a.sel.PatientManualOpen, true); err != nil {
		return failed("manual patient form did not open: " + err.Error()), false
	}
	a.pause(ctx)

	if err := a.page.Fill(ctx, a.sel.PatientName, r.Name); err != nil {
		return failed("patient name fill failed: " + err.Error()), false
	}
	if err := a.page.Fill(ctx, a.sel.PatientBirth, placeholderBirth); err != nil {
		return failed("patient birth fill failed: " + err.Error()), false
	}
	if err := a.page.Fill(ctx, a.sel.PatientRegister, placeholderRegister); err != nil {
		return failed("patient register fill failed: " + err.Error()), false
	}

	mid, last := reservation.SplitPhone(r.PhoneDigits())
	if mid != "" {
		if err := a.page.Fill(ctx, a.sel.PhoneMid, mid); err != nil {
			return failed("phone mid fill failed: " + err.Error()), false
		}
	}
	if last != "" {
		if err := a.page.Fill(ctx, a.sel.PhoneLast, last); err != nil {
			return failed("phone last fill failed: " + err.Error()), false
		}
	}
	return Outcome{}, true
}

// selectMode tries scheduled-visit mode first. Only the appearance of the
// time-selection control counts as success; the mode control can be present
// but inert, so a clean click proves nothing. Same-day reservations fall
// back to walk-in mode; future ones must not be silently downgraded.
func (a *Applier) selectMode(ctx context.Context, log *slog.Logger, sched reservation.Schedule) (visitMode, Outcome, bool) {
	a.pause(ctx)
	if err := a.page.Click(ctx, a.sel.ModeScheduled, true); err != nil {
		log.Debug("scheduled mode control rejected the click", "err", err)
	}
	if a.page.WaitVisible(ctx, a.sel.TimeControl, a.longWait) {
		return modeScheduled, Outcome{}, true
	}

	if sched.IsOn(a.now()) {
		log.Info("time selection unavailable, falling back to walk-in for same-day reservation")
		if err := a.page.Click(ctx, a.sel.ModeWalkIn, true); err != nil {
			return 0, failed("walk-in mode control not found: " + err.Error()), false
		}
		return modeWalkIn, Outcome{}, true
	}

	a.capture(ctx, "scheduled_mode_unavailable")
	return 0, failed("scheduled-visit mode unavailable for future reservation"), false
}

func (a *Applier) selectDateTime(ctx context.Context, log *slog.Logger, sched reservation.Schedule) (Outcome, bool) {
	if a.page.WaitVisible(ctx, a.sel.DatePickerOpen, a.shortWait) {
		if err := a.page.Click(ctx, a.sel.DatePickerOpen, true); err != nil {
			log.Debug("date picker control rejected the click", "err", err)
		}
		a.pause(ctx)
	}

	day, ok := locateFirst(ctx, log, "select-day", a.dayStrategies(sched))
	if !ok {
		a.capture(ctx, "day_not_found")
		return failed(fmt.Sprintf("no day control matches %d.%d", sched.Month, sched.Day)), false
	}
	if err := day.Click(ctx); err != nil {
		return failed("day control did not accept the click: " + err.Error()), false
	}
	a.pause(ctx)

	hhmm := sched.TimeHHMM()
	slot, ok := locateFirst(ctx, log, "select-slot", a.slotStrategies(hhmm))
	if !ok {
		a.capture(ctx, "slot_not_found")
		return failed(fmt.Sprintf("no time slot control matches %s", hhmm)), false
	}
	if err := slot.Click(ctx); err != nil {
		return failed("time slot did not accept the click: " + err.Error()), false
	}
	return Outcome{}, true
}

// dayStrategies is the day-selection cascade: accessible label with both
// zero-padding renderings, then a day-cell scan excluding neighboring-month
// cells, then a loose text-only match as last resort.
func (a *Applier) dayStrategies(sched reservation.Schedule) []strategy {
	var labels []string
	for _, m := range reservation.PaddingVariants(sched.Month) {
		for _, d := range reservation.PaddingVariants(sched.Day) {
			labels = append(labels, fmt.Sprintf(a.sel.DayLabel, m, d))
		}
	}
	dayText := strconv.Itoa(sched.Day)

	return []strategy{
		{name: "aria-label", locate: func(ctx context.Context) (browser.Element, bool) {
			for _, label := range labels {
				if el, ok := a.bySelector(fmt.Sprintf(a.sel.DayByLabel, label))(ctx); ok {
					return el, true
				}
			}
			return nil, false
		}},
		{name: "cell-scan", locate: func(ctx context.Context) (browser.Element, bool) {
			return a.scanDayCells(ctx, dayText, true)
		}},
		{name: "loose-text", locate: func(ctx context.Context) (browser.Element, bool) {
			return a.scanDayCells(ctx, dayText, false)
		}},
	}
}

func (a *Applier) scanDayCells(ctx context.Context, dayText string, excludeOutside bool) (browser.Element, bool) {
	els, err := a.page.QueryAll(ctx, a.sel.DayCells)
	if err != nil {
		return nil, false
	}
	for _, el := range els {
		txt, err := el.Text(ctx)
		if err != nil || strings.TrimSpace(txt) != dayText {
			continue
		}
		if excludeOutside {
			if class, ok, _ := el.Attr(ctx, "class"); ok && strings.Contains(class, a.sel.DayOutside) {
				continue
			}
		}
		return el, true
	}
	return nil, false
}

// slotStrategies is the time-slot cascade: direct text match, selectable
// input matched by value, then a linear scan of label-like elements.
func (a *Applier) slotStrategies(hhmm string) []strategy {
	return []strategy{
		{name: "text", locate: a.bySelector(fmt.Sprintf(a.sel.SlotByText, hhmm))},
		{name: "input-value", locate: func(ctx context.Context) (browser.Element, bool) {
			els, err := a.page.QueryAll(ctx, a.sel.SlotInputs)
			if err != nil {
				return nil, false
			}
			for _, el := range els {
				v, ok, _ := el.Attr(ctx, "value")
				if ok && (v == hhmm || v == hhmm+":00") {
					return el, true
				}
			}
			return nil, false
		}},
		{name: "label-scan", locate: func(ctx context.Context) (browser.Element, bool) {
			els, err := a.page.QueryAll(ctx, a.sel.SlotLabels)
			if err != nil {
				return nil, false
			}
			for _, el := range els {
				if txt, err := el.Text(ctx); err == nil && strings.TrimSpace(txt) == hhmm {
					return el, true
				}
			}
			return nil, false
		}},
	}
}

// setTreatmentItem swaps the default treatment item for the configured one.
// Best-effort: the visit is still valid with the default item, so nothing
// here can fail the attempt.
func (a *Applier) setTreatmentItem(ctx context.Context, log *slog.Logger) {
	if a.treatOn == "" {
		return
	}
	if err := a.page.Click(ctx, a.sel.TreatmentDropdown, true); err != nil {
		log.Warn("treatment dropdown did not open", "err", err)
		return
	}
	a.pause(ctx)

	if a.treatOff != "" {
		off := fmt.Sprintf(a.sel.TreatmentOption, a.treatOff)
		if err := a.page.Click(ctx, off, true); err != nil {
			log.Warn("default treatment item not deselected", "item", a.treatOff, "err", err)
		}
	}
	on := fmt.Sprintf(a.sel.TreatmentOption, a.treatOn)
	if err := a.page.Click(ctx, on, true); err != nil {
		log.Warn("treatment item not selected", "item", a.treatOn, "err", err)
	}
	// Close the dropdown so it cannot shadow the save control.
	if err := a.page.Click(ctx, a.sel.TreatmentDropdown, true); err != nil {
		log.Debug("treatment dropdown did not close", "err", err)
	}
}

func (a *Applier) save(ctx context.Context, log *slog.Logger) Outcome {
	if !a.page.WaitVisible(ctx, a.sel.Save, a.shortWait) {
		a.capture(ctx, "save_not_visible")
		return failed("save control not visible")
	}
	if els, err := a.page.QueryAll(ctx, a.sel.Save); err == nil && len(els) > 0 {
		if _, disabled, _ := els[0].Attr(ctx, "disabled"); disabled {
			a.capture(ctx, "save_disabled")
			return failed("save control disabled")
		}
	}
	if err := a.page.Click(ctx, a.sel.Save, false); err != nil {
		return failed("save click failed: " + err.Error())
	}
	// Dialog close is best-effort confirmation: the save already went
	// through, so a slow close animation does not demote the outcome.
	if !a.page.WaitGone(ctx, a.sel.Dialog, a.shortWait) {
		log.Warn("booking dialog did not close after save")
	}
	return applied()
}

func (a *Applier) cleanup(ctx context.Context, log *slog.Logger) {
	log.Debug("resetting target state after failure")
	_ = a.page.PressEscape(ctx)
	sleep(ctx, 500*time.Millisecond)
	_ = a.page.PressEscape(ctx)
	if err := a.target.GotoBase(ctx); err != nil {
		log.Warn("could not navigate back to base listing", "err", err)
	}
}

func (a *Applier) capture(ctx context.Context, label string) {
	html, err := a.page.Content(ctx)
	if err != nil {
		a.log.Warn("page content unavailable for capture", "label", label, "err", err)
		return
	}
	a.diag.Capture(label, html)
}

func (a *Applier) pause(ctx context.Context) {
	sleep(ctx, a.stepDelay)
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
