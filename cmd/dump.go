package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/visitsync/internal/browser"
	"github.com/example/visitsync/internal/config"
	"github.com/example/visitsync/internal/diag"
	"github.com/example/visitsync/internal/logging"
	"github.com/example/visitsync/internal/session"
)

// newDumpCmd captures the rendered source listing for selector debugging.
// When either system reshapes its markup, this is the first command to run.
func newDumpCmd() *cobra.Command {
	var rawURL string

	c := &cobra.Command{
		Use:   "dump",
		Short: "Capture the rendered source listing (or any URL) to the diagnostics directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			logger, closeLog, err := logging.New("", false)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			b, err := browser.Launch(ctx, cfg.Headless, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			tab, closeTab, err := b.NewTab()
			if err != nil {
				return err
			}
			defer closeTab()

			if len(cfg.HashKey) > 0 {
				if codec, err := session.NewCodec(cfg.HashKey, cfg.BlockKey); err == nil {
					if st, err := codec.Load(cfg.StatePath); err == nil {
						_ = tab.ImportCookies(ctx, st.Source)
					}
				}
			}

			url := rawURL
			if url == "" {
				url = cfg.SourceURL(time.Now())
			}
			if err := tab.Navigate(ctx, url); err != nil {
				return err
			}
			if !tab.WaitGone(ctx, cfg.Selectors.SourceSkeleton, 10*time.Second) {
				logger.Warn("skeleton placeholders still present")
			}

			html, err := tab.Content(ctx)
			if err != nil {
				return err
			}
			path := diag.NewRecorder(cfg.DiagDir, logger).Capture("dump", html)
			if path == "" {
				return fmt.Errorf("capture failed, check VISITSYNC_DIAG_DIR")
			}
			fmt.Fprintln(os.Stdout, path)
			return nil
		},
	}

	c.Flags().StringVar(&rawURL, "url", "", "override the captured URL")
	return c
}
