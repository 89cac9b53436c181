package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/visitsync/internal/secrets"
)

func newCredsCmd() *cobra.Command {
	var username, password, out string

	c := &cobra.Command{
		Use:   "creds",
		Short: "Write the encrypted clinic-system credentials file",
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase := os.Getenv("VISITSYNC_PASSPHRASE")
			if passphrase == "" {
				return fmt.Errorf("VISITSYNC_PASSPHRASE required")
			}
			if err := secrets.SaveCredentials(out, passphrase, secrets.Credentials{
				Username: username,
				Password: password,
			}); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "wrote %s\n", out)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "clinic-system username")
	c.Flags().StringVar(&password, "password", "", "clinic-system password")
	c.Flags().StringVar(&out, "out", "credentials.sealed", "output path")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	return c
}
