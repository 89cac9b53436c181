package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/visitsync/internal/browser"
	"github.com/example/visitsync/internal/config"
	"github.com/example/visitsync/internal/logging"
	"github.com/example/visitsync/internal/session"
)

// newAuthCmd is the one-time interactive capture: a headful browser opens
// both systems, the operator logs in by hand, and the resulting cookies are
// sealed to the state file that `run` restores on startup.
func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth-setup",
		Short: "Log in to both systems interactively and seal the session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if len(cfg.HashKey) == 0 {
				return fmt.Errorf("VISITSYNC_HASH_KEY required; generate one with `visitsync keys`")
			}
			codec, err := session.NewCodec(cfg.HashKey, cfg.BlockKey)
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

			b, err := browser.Launch(ctx, false, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			sourceTab, closeSource, err := b.NewTab()
			if err != nil {
				return err
			}
			defer closeSource()
			targetTab, closeTarget, err := b.NewTab()
			if err != nil {
				return err
			}
			defer closeTarget()

			if err := sourceTab.Navigate(ctx, cfg.SourceURL(time.Now())); err != nil {
				return err
			}
			if err := targetTab.Navigate(ctx, cfg.TargetLoginURL); err != nil {
				return err
			}

			fmt.Println("Log in to both systems in the opened browser, then press Enter here.")
			if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err != nil {
				return err
			}

			var st session.State
			if st.Source, err = sourceTab.ExportCookies(ctx); err != nil {
				return fmt.Errorf("source cookie export: %w", err)
			}
			if st.Target, err = targetTab.ExportCookies(ctx); err != nil {
				return fmt.Errorf("target cookie export: %w", err)
			}
			if err := codec.Save(cfg.StatePath, st); err != nil {
				return err
			}
			fmt.Printf("sealed %d source and %d target cookies to %s\n", len(st.Source), len(st.Target), cfg.StatePath)
			return nil
		},
	}
}
