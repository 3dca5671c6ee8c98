package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gemuki/bot/crypto"
	"github.com/gemuki/bot/store"
)

func newSealKeysCmd(opts *options) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "seal-keys",
		Short: "Encrypt game key values stored in plaintext",
		Long: `Encrypt every game key value that is not sealed yet with ENCRYPTION_KEY.

Keys added before ENCRYPTION_KEY was configured stay readable either way;
sealing them protects database dumps and backups.

Examples:
  gemukictl seal-keys --dry-run
  gemukictl seal-keys`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.EncryptionKey == "" {
				return fmt.Errorf("ENCRYPTION_KEY environment variable is required")
			}
			sealer, err := crypto.NewAESSealer(opts.cfg.EncryptionKey)
			if err != nil {
				return fmt.Errorf("initialize sealer: %w", err)
			}
			database, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			n, err := store.New(database, sealer).SealStoredKeys(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			slog.Info("seal summary", slog.Int("keys", n), slog.Bool("dry_run", dryRun))
			verb := "sealed"
			if dryRun {
				verb = "would seal"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d key(s)\n", verb, n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show how many keys would be sealed without making changes")
	return cmd
}
