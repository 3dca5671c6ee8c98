package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gemuki/bot/db"
)

func newMigrateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect schema migrations",
		Long: `Manage the versioned schema migrations embedded in the binary.

Examples:
  gemukictl migrate up
  gemukictl migrate version
  gemukictl migrate down`,
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()
			if err := db.RunMigrations(database.DB); err != nil {
				return err
			}
			return printVersion(cmd, database.DB)
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()
			slog.Warn("rolling back the most recent migration; this may drop data")
			if err := db.MigrateDown(database.DB); err != nil {
				return err
			}
			return printVersion(cmd, database.DB)
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()
			return printVersion(cmd, database.DB)
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func printVersion(cmd *cobra.Command, database *sql.DB) error {
	v, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", v, state)
	return nil
}
