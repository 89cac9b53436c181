package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/visitsync/internal/config"
	"github.com/example/visitsync/internal/logging"
)

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the processed-reservation ledger",
	}
	cmd.AddCommand(newLedgerListCmd())
	cmd.AddCommand(newLedgerHasCmd())
	return cmd
}

func newLedgerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every recorded reservation key",
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

			led, closeLedger, err := openLedger(cfg, logger)
			if err != nil {
				return err
			}
			defer closeLedger()

			keys, ok := led.(interface{ Keys() []string })
			if !ok {
				return fmt.Errorf("ledger driver %q does not support listing", cfg.LedgerDriver)
			}
			for _, k := range keys.Keys() {
				fmt.Fprintln(os.Stdout, k)
			}
			return nil
		},
	}
}

func newLedgerHasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "has <key>",
		Short: "Check whether a reservation key is recorded",
		Args:  cobra.ExactArgs(1),
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

			led, closeLedger, err := openLedger(cfg, logger)
			if err != nil {
				return err
			}
			defer closeLedger()

			if led.Has(args[0]) {
				fmt.Fprintln(os.Stdout, "recorded")
				return nil
			}
			fmt.Fprintln(os.Stdout, "not recorded")
			return nil
		},
	}
}
