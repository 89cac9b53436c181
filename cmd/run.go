package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/visitsync/internal/apply"
	"github.com/example/visitsync/internal/browser"
	"github.com/example/visitsync/internal/config"
	"github.com/example/visitsync/internal/diag"
	"github.com/example/visitsync/internal/extract"
	"github.com/example/visitsync/internal/history"
	"github.com/example/visitsync/internal/ledger"
	"github.com/example/visitsync/internal/logging"
	"github.com/example/visitsync/internal/reconcile"
	"github.com/example/visitsync/internal/reservation"
	"github.com/example/visitsync/internal/secrets"
	"github.com/example/visitsync/internal/session"
	"github.com/example/visitsync/internal/web"
)

func newRunCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reconciliation loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			logger, closeLog, err := logging.New(cfg.LogFile, verbose)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			creds, err := loadCredentials(cfg)
			if err != nil {
				return err
			}

			led, closeLedger, err := openLedger(cfg, logger)
			if err != nil {
				return err
			}
			defer closeLedger()

			var hist reconcile.History
			if cfg.DatabaseURL != "" {
				repo, err := history.Open(ctx, cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("history: %w", err)
				}
				defer repo.Close()
				if err := repo.Ping(ctx); err != nil {
					return fmt.Errorf("history ping: %w", err)
				}
				if err := repo.Migrate(ctx); err != nil {
					return err
				}
				hist = repo
			}

			// The browser outlives the loop context so the cookie
			// snapshot can still be saved after a shutdown signal.
			b, err := browser.Launch(context.Background(), cfg.Headless, logger)
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

			codec := restoreState(ctx, cfg, sourceTab, targetTab, logger)

			target := session.NewTarget(targetTab, cfg, creds, logger)
			if err := target.GotoBase(ctx); err != nil {
				return err
			}
			if target.LoggedOut(ctx) {
				if err := target.Reauthenticate(ctx); err != nil {
					return fmt.Errorf("initial target login: %w", err)
				}
			}

			deny := reservation.NewDenylist(cfg.DenyNames, cfg.DenyPhones)
			loop := &reconcile.Loop{
				Source:   session.NewSource(sourceTab, cfg, logger),
				Extract:  extract.New(sourceTab, cfg.Selectors, deny, logger),
				Apply:    apply.New(targetTab, target, cfg, diag.NewRecorder(cfg.DiagDir, logger), logger),
				Ledger:   led,
				History:  hist,
				Policy:   cfg.FailurePolicy,
				Interval: cfg.PollInterval,
				Pause:    cfg.ReservationDelay,
				Log:      logger,
			}

			if cfg.StatusAddr != "" {
				ws := &web.Server{Loop: loop, Ledger: led, Log: logger}
				go func() {
					if err := web.Start(ctx, cfg.StatusAddr, ws.Routes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("status listener failed", "err", err)
					}
				}()
				logger.Info("status listener up", "addr", cfg.StatusAddr)
			}

			logger.Info("reconciliation loop starting",
				"interval", cfg.PollInterval, "policy", cfg.FailurePolicy, "ledger", led.Len())

			err = loop.Run(ctx)
			saveState(cfg, codec, sourceTab, targetTab, logger)
			if errors.Is(err, context.Canceled) {
				logger.Info("shutting down")
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log debug-level detail")
	return cmd
}

func loadCredentials(cfg config.Config) (secrets.Credentials, error) {
	if cfg.CredsFile != "" {
		if cfg.Passphrase == "" {
			return secrets.Credentials{}, fmt.Errorf("VISITSYNC_PASSPHRASE required to read %s", cfg.CredsFile)
		}
		return secrets.LoadCredentials(cfg.CredsFile, cfg.Passphrase)
	}
	if cfg.TargetUsername == "" || cfg.TargetPassword == "" {
		return secrets.Credentials{}, fmt.Errorf("no target credentials: set VISITSYNC_CREDS_FILE or VISITSYNC_TARGET_USERNAME/PASSWORD")
	}
	return secrets.Credentials{Username: cfg.TargetUsername, Password: cfg.TargetPassword}, nil
}

func openLedger(cfg config.Config, logger *slog.Logger) (ledger.Ledger, func(), error) {
	switch cfg.LedgerDriver {
	case "sqlite":
		l, err := ledger.OpenSQLite(cfg.LedgerPath, logger)
		if err != nil {
			return nil, nil, err
		}
		return l, func() { _ = l.Close() }, nil
	default:
		return ledger.OpenFile(cfg.LedgerPath, logger), func() {}, nil
	}
}

// restoreState unseals the persisted cookie snapshot into both tabs. Any
// failure means starting unauthenticated, which the session managers
// recover from, so nothing here is fatal.
func restoreState(ctx context.Context, cfg config.Config, sourceTab, targetTab *browser.Tab, logger *slog.Logger) *session.Codec {
	if len(cfg.HashKey) == 0 {
		logger.Warn("no state keys configured, sessions start cold")
		return nil
	}
	codec, err := session.NewCodec(cfg.HashKey, cfg.BlockKey)
	if err != nil {
		logger.Warn("state codec unavailable", "err", err)
		return nil
	}
	st, err := codec.Load(cfg.StatePath)
	if err != nil {
		logger.Warn("no usable session state, starting cold", "err", err)
		return codec
	}
	if err := sourceTab.ImportCookies(ctx, st.Source); err != nil {
		logger.Warn("source cookie restore failed", "err", err)
	}
	if err := targetTab.ImportCookies(ctx, st.Target); err != nil {
		logger.Warn("target cookie restore failed", "err", err)
	}
	logger.Info("session state restored", "source_cookies", len(st.Source), "target_cookies", len(st.Target))
	return codec
}

// saveState re-seals the current cookies so rotated session tokens survive
// the restart. Best-effort; the run is already over.
func saveState(cfg config.Config, codec *session.Codec, sourceTab, targetTab *browser.Tab, logger *slog.Logger) {
	if codec == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var st session.State
	var err error
	if st.Source, err = sourceTab.ExportCookies(ctx); err != nil {
		logger.Warn("source cookie export failed", "err", err)
		return
	}
	if st.Target, err = targetTab.ExportCookies(ctx); err != nil {
		logger.Warn("target cookie export failed", "err", err)
		return
	}
	if err := codec.Save(cfg.StatePath, st); err != nil {
		logger.Warn("session state save failed", "err", err)
		return
	}
	logger.Info("session state saved", "path", cfg.StatePath)
}
