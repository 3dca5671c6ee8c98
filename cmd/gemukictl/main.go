// Command gemukictl is the admin CLI for the gemuki bot database.
//
// Usage:
//
//	gemukictl migrate up|down|version
//	gemukictl seal-keys [--dry-run]
//
// Environment Variables:
//
//	GEMUKI_DATABASE_URL: Database connection string (or --database-url)
//	ENCRYPTION_KEY: Base64-encoded 32-byte key, required by seal-keys
package main

import (
	"log/slog"
	"os"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", slog.Any("err", err))
		os.Exit(1)
	}
}
