// Package extract turns the source system's rendered reservation listing
// into a normalized, deduplicated sequence of actionable reservations.
package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/example/visitsync/internal/browser"
	"github.com/example/visitsync/internal/config"
	"github.com/example/visitsync/internal/reservation"
)

type Extractor struct {
	page browser.Page
	sel  config.Selectors
	deny reservation.Denylist
	log  *slog.Logger
}

func New(page browser.Page, sel config.Selectors, deny reservation.Denylist, log *slog.Logger) *Extractor {
	return &Extractor{page: page, sel: sel, deny: deny, log: log}
}

// Extract reads the current listing. A row is actionable only with a
// non-empty name, a non-empty phone and a schedule text carrying a
// confirmed HH:MM token; date-only rows are reservations whose slot the
// source has not confirmed yet and are excluded. Rows are deduplicated by
// key in extraction order. A malformed row is skipped and logged, never
// aborting the rest.
func (e *Extractor) Extract(ctx context.Context) ([]reservation.Reservation, error) {
	rows, err := e.page.QueryAll(ctx, e.sel.SourceRow)
	if err != nil {
		return nil, err
	}
	e.log.Debug("listing rows found", "count", len(rows))

	var out []reservation.Reservation
	seen := make(map[string]struct{})
	for i, row := range rows {
		r, ok := e.parseRow(ctx, i, row)
		if !ok {
			continue
		}
		if e.deny.Blocked(r) {
			e.log.Info("reservation denylisted, skipping", "name", r.Name)
			continue
		}
		if _, dup := seen[r.Key()]; dup {
			continue
		}
		seen[r.Key()] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

func (e *Extractor) parseRow(ctx context.Context, i int, row browser.Element) (reservation.Reservation, bool) {
	nameText, err := childText(ctx, row, e.sel.SourceName)
	if err != nil {
		e.log.Warn("row name unreadable, skipping", "row", i, "err", err)
		return reservation.Reservation{}, false
	}
	phone, err := childText(ctx, row, e.sel.SourcePhone)
	if err != nil {
		e.log.Warn("row phone unreadable, skipping", "row", i, "err", err)
		return reservation.Reservation{}, false
	}
	schedule, err := childText(ctx, row, e.sel.SourceTime)
	if err != nil {
		e.log.Warn("row schedule unreadable, skipping", "row", i, "err", err)
		return reservation.Reservation{}, false
	}

	// The name cell renders name and phone together; the phone renders
	// again in its own sub-element, so strip it back out.
	name := strings.TrimSpace(strings.ReplaceAll(nameText, phone, ""))

	r := reservation.Reservation{Name: name, Phone: phone, ScheduleText: schedule}
	if name == "" || phone == "" {
		e.log.Debug("row missing name or phone, skipping", "row", i, "name", name, "phone", phone)
		return reservation.Reservation{}, false
	}
	if !reservation.HasTimeToken(schedule) {
		e.log.Debug("row has no confirmed time, skipping", "name", name, "schedule", schedule)
		return reservation.Reservation{}, false
	}
	return r, true
}

func childText(ctx context.Context, row browser.Element, sel string) (string, error) {
	els, err := row.Query(ctx, sel)
	if err != nil {
		return "", err
	}
	if len(els) == 0 {
		return "", nil
	}
	t, err := els[0].Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(t), nil
}
