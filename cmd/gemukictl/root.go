package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/gemuki/bot/config"
	"github.com/gemuki/bot/db"
)

type options struct {
	databaseURL string
	cfg         *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "gemukictl",
		Short:         "Administer the gemuki bot database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (local dev convenience only)
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.databaseURL != "" {
				cfg.DatabaseURL = opts.databaseURL
			}
			opts.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "Postgres connection string (default: GEMUKI_DATABASE_URL)")

	root.AddCommand(newMigrateCmd(opts), newSealKeysCmd(opts))
	return root
}

func (o *options) connect(ctx context.Context) (*sqlx.DB, error) {
	database, err := db.Connect(ctx, o.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return database, nil
}
