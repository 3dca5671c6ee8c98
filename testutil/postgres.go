package testutil

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/gemuki/bot/db"
)

// SetupTestDB connects to TEST_PG_DSN and applies the embedded migrations.
// It skips the test if TEST_PG_DSN environment variable is not set.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	ctx := context.Background()
	database, err := db.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.RunMigrations(database.DB); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return database
}

// TruncateOnCleanup empties tables (and everything referencing them) when the test ends.
// Seeded platform rows are untouched unless "platform" is listed.
func TruncateOnCleanup(t *testing.T, database *sqlx.DB, tables ...string) {
	t.Helper()
	t.Cleanup(func() {
		stmt := "TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE"
		if _, err := database.ExecContext(context.Background(), stmt); err != nil {
			t.Errorf("truncate %v: %v", tables, err)
		}
	})
}
