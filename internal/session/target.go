package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/visitsync/internal/browser"
	"github.com/example/visitsync/internal/config"
	"github.com/example/visitsync/internal/secrets"
)

const loginTimeout = 30 * time.Second

// Target keeps the clinic-system session authenticated and navigable.
type Target struct {
	page  browser.Page
	sel   config.Selectors
	creds secrets.Credentials

	loginURL  string
	loginPath string
	homePath  string
	baseURL   string

	log *slog.Logger
}

func NewTarget(page browser.Page, cfg config.Config, creds secrets.Credentials, log *slog.Logger) *Target {
	return &Target{
		page:      page,
		sel:       cfg.Selectors,
		creds:     creds,
		loginURL:  cfg.TargetLoginURL,
		loginPath: cfg.TargetLoginPath,
		homePath:  cfg.TargetHomePath,
		baseURL:   cfg.TargetBaseURL,
		log:       log,
	}
}

// LoggedOut reports whether the session shows logged-out indicators: a
// visible login form or a current URL on the login path.
func (t *Target) LoggedOut(ctx context.Context) bool {
	if u, err := t.page.URL(ctx); err == nil && strings.Contains(u, t.loginPath) {
		return true
	}
	return t.page.WaitVisible(ctx, t.sel.LoginUser, 500*time.Millisecond)
}

// Reauthenticate drives the login form and waits for an authenticated URL.
func (t *Target) Reauthenticate(ctx context.Context) error {
	t.log.Info("re-authenticating target session")
	if err := t.page.Navigate(ctx, t.loginURL); err != nil {
		return fmt.Errorf("session: open login page: %w", err)
	}
	if !t.page.WaitVisible(ctx, t.sel.LoginUser, loginTimeout) {
		return fmt.Errorf("session: login form not visible")
	}
	if err := t.page.Fill(ctx, t.sel.LoginUser, t.creds.Username); err != nil {
		return fmt.Errorf("session: fill username: %w", err)
	}
	if err := t.page.Fill(ctx, t.sel.LoginPass, t.creds.Password); err != nil {
		return fmt.Errorf("session: fill password: %w", err)
	}
	if err := t.page.Click(ctx, t.sel.LoginSubmit, true); err != nil {
		return fmt.Errorf("session: submit login: %w", err)
	}

	deadline := time.Now().Add(loginTimeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if u, err := t.page.URL(ctx); err == nil && strings.Contains(u, t.homePath) {
			t.log.Info("target login succeeded", "url", u)
			return nil
		}
		sleep(ctx, 500*time.Millisecond)
	}
	return fmt.Errorf("session: login did not reach %s within %s", t.homePath, loginTimeout)
}

// GotoBase returns the session to the base listing view, the known-good
// state the applier's cleanup relies on.
func (t *Target) GotoBase(ctx context.Context) error {
	return t.page.Navigate(ctx, t.baseURL)
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
