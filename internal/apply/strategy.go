package apply

import (
	"context"
	"log/slog"

	"github.com/example/visitsync/internal/browser"
)

// strategy is one way of locating a control for a logical step: a function
// from page state to an optional handle. The target exposes several
// structurally different routes to the same control and none is reliable
// across all of its states, so each step runs an ordered cascade of
// independent strategies instead of betting on one selector.
type strategy struct {
	name   string
	locate func(ctx context.Context) (browser.Element, bool)
}

// locateFirst tries strategies in order and returns the first handle found.
func locateFirst(ctx context.Context, log *slog.Logger, step string, strats []strategy) (browser.Element, bool) {
	for _, s := range strats {
		if err := ctx.Err(); err != nil {
			return nil, false
		}
		if el, ok := s.locate(ctx); ok {
			log.Debug("control located", "step", step, "strategy", s.name)
			return el, true
		}
		log.Debug("strategy missed", "step", step, "strategy", s.name)
	}
	return nil, false
}

// bySelector is the common strategy body: first match of a selector.
func (a *Applier) bySelector(sel string) func(ctx context.Context) (browser.Element, bool) {
	return func(ctx context.Context) (browser.Element, bool) {
		els, err := a.page.QueryAll(ctx, sel)
		if err != nil || len(els) == 0 {
			return nil, false
		}
		return els[0], true
	}
}
