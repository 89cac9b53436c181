package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/visitsync/internal/browser"
	"github.com/example/visitsync/internal/config"
)

// Source keeps the scheduling-system listing loaded. Its authentication
// comes entirely from the restored cookie snapshot; there is no credential
// login path, so a dead session surfaces as an empty or stuck listing.
type Source struct {
	page browser.Page
	cfg  config.Config
	log  *slog.Logger
	now  func() time.Time
}

func NewSource(page browser.Page, cfg config.Config, log *slog.Logger) *Source {
	return &Source{page: page, cfg: cfg, log: log, now: time.Now}
}

// Refresh reloads the listing for the current date window and waits out the
// skeleton placeholders. Wait misses are tolerated: the extractor decides
// what the rendered rows are worth.
func (s *Source) Refresh(ctx context.Context) error {
	url := s.cfg.SourceURL(s.now())
	if err := s.page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("session: refresh source listing: %w", err)
	}
	if !s.page.WaitVisible(ctx, s.cfg.Selectors.SourceRow, 5*time.Second) {
		s.log.Debug("no listing rows visible after refresh")
	}
	if !s.page.WaitGone(ctx, s.cfg.Selectors.SourceSkeleton, 5*time.Second) {
		s.log.Debug("skeleton placeholders still present after refresh")
	}
	return nil
}
