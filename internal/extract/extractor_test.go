package extract

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/visitsync/internal/browser"
	"github.com/example/visitsync/internal/config"
	"github.com/example/visitsync/internal/reservation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func listingRow(sel config.Selectors, name, phone, schedule string) *browser.FakeElement {
	return &browser.FakeElement{Children: map[string][]*browser.FakeElement{
		sel.SourceName:  {{TextVal: name}},
		sel.SourcePhone: {{TextVal: phone}},
		sel.SourceTime:  {{TextVal: schedule}},
	}}
}

func newExtractor(t *testing.T, rows ...*browser.FakeElement) (*Extractor, config.Selectors) {
	t.Helper()
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	page := browser.NewFake()
	page.Elements[cfg.Selectors.SourceRow] = rows
	return New(page, cfg.Selectors, reservation.NewDenylist(nil, nil), testLogger()), cfg.Selectors
}

func TestExtractActionableRows(t *testing.T) {
	var sel = defaultSel(t)
	e, _ := newExtractor(t,
		listingRow(sel, "Kim 010-1234-5678", "010-1234-5678", "2024.06.10 (월) 오전 10:30"),
		listingRow(sel, "Lee 010-2222-3333", "010-2222-3333", "2024.06.11 (화) 오후 2:00"),
	)

	got, err := e.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Kim", got[0].Name)
	assert.Equal(t, "010-1234-5678", got[0].Phone)
	assert.Equal(t, "Lee", got[1].Name)
}

func TestExtractExcludesDateOnlyRows(t *testing.T) {
	sel := defaultSel(t)
	e, _ := newExtractor(t,
		listingRow(sel, "Kim 010-1234-5678", "010-1234-5678", "2024.06.10 (월)"),
	)
	got, err := e.Extract(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractExcludesIncompleteRows(t *testing.T) {
	sel := defaultSel(t)
	e, _ := newExtractor(t,
		listingRow(sel, "", "", "2024.06.10 (월) 오전 10:30"),
		listingRow(sel, "NoPhone", "", "2024.06.10 (월) 오전 10:30"),
	)
	got, err := e.Extract(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractLogsIncompleteRowSkips(t *testing.T) {
	sel := defaultSel(t)
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	page := browser.NewFake()
	page.Elements[sel.SourceRow] = []*browser.FakeElement{
		listingRow(sel, "NoPhone", "", "2024.06.10 (월) 오전 10:30"),
	}

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := New(page, cfg.Selectors, reservation.NewDenylist(nil, nil), log)

	got, err := e.Extract(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Contains(t, buf.String(), "row missing name or phone")
}

func TestExtractDeduplicatesWithinPoll(t *testing.T) {
	sel := defaultSel(t)
	e, _ := newExtractor(t,
		listingRow(sel, "Kim 010-1234-5678", "010-1234-5678", "2024.06.10 (월) 오전 10:30"),
		listingRow(sel, "Kim 010-1234-5678", "010-1234-5678", "2024.06.10 (월) 오전 10:30"),
	)
	got, err := e.Extract(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestExtractSkipsMalformedRowAndContinues(t *testing.T) {
	sel := defaultSel(t)
	bad := listingRow(sel, "Broken", "010-0000-0000", "2024.06.10 (월) 오전 9:00")
	bad.Children[sel.SourceName][0].TextErr = errors.New("stale element")

	e, _ := newExtractor(t,
		bad,
		listingRow(sel, "Kim 010-1234-5678", "010-1234-5678", "2024.06.10 (월) 오전 10:30"),
	)
	got, err := e.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Kim", got[0].Name)
}

func TestExtractAppliesDenylist(t *testing.T) {
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	sel := cfg.Selectors

	page := browser.NewFake()
	page.Elements[sel.SourceRow] = []*browser.FakeElement{
		listingRow(sel, "홍길동 010-6436-7706", "010-6436-7706", "2024.06.10 (월) 오전 10:30"),
		listingRow(sel, "Kim 010-1234-5678", "010-1234-5678", "2024.06.10 (월) 오전 10:30"),
	}
	e := New(page, sel, reservation.NewDenylist([]string{"홍길동"}, nil), testLogger())

	got, err := e.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Kim", got[0].Name)
}

func defaultSel(t *testing.T) config.Selectors {
	t.Helper()
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	return cfg.Selectors
}
