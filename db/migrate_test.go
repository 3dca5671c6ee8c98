package db

import (
	"context"
	"database/sql"
	"os"
	"sort"
	"strings"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var schemaTables = []string{
	"platform", "game", "game_key",
	"keylist", "keylist_access", "keylist_key",
	"key_raffle", "key_raffle_key", "key_raffle_entry", "key_raffle_winner",
}

// TestEmbeddedMigrationsPaired checks every up migration has a matching down file.
func TestEmbeddedMigrationsPaired(t *testing.T) {
	names, err := EmbeddedMigrations()
	if err != nil {
		t.Fatalf("EmbeddedMigrations() error = %v", err)
	}
	if len(names) == 0 {
		t.Fatal("no embedded migrations")
	}
	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups[strings.TrimSuffix(n, ".up.sql")] = true
		case strings.HasSuffix(n, ".down.sql"):
			downs[strings.TrimSuffix(n, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", n)
		}
	}
	var missing []string
	for base := range ups {
		if !downs[base] {
			missing = append(missing, base)
		}
	}
	sort.Strings(missing)
	if len(missing) > 0 {
		t.Errorf("up migrations without down: %v", missing)
	}
	if len(ups) != len(downs) {
		t.Errorf("up/down count mismatch: %d vs %d", len(ups), len(downs))
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping migration test")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	cleanDatabase(t, context.Background(), db)
	return db
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_name = $1
	)`, table).Scan(&exists)
	if err != nil {
		t.Fatalf("failed to check table %s: %v", table, err)
	}
	return exists
}

// TestRunMigrations tests that migrations can be applied to an empty database
func TestRunMigrations(t *testing.T) {
	db := openTestDB(t)

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	for _, table := range schemaTables {
		if !tableExists(t, db, table) {
			t.Errorf("table %s does not exist after migration", table)
		}
	}

	var platforms int
	if err := db.QueryRow(`SELECT COUNT(*) FROM platform`).Scan(&platforms); err != nil {
		t.Fatalf("count platforms: %v", err)
	}
	if platforms != 4 {
		t.Errorf("seeded platforms = %d, want 4", platforms)
	}

	version, dirty, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatalf("GetMigrationVersion() error = %v", err)
	}
	if dirty {
		t.Errorf("migration version is dirty")
	}
	if version < 4 {
		t.Errorf("migration version = %d, want >= 4", version)
	}
}

// TestMigrationsIdempotent tests that running migrations multiple times is safe
func TestMigrationsIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := RunMigrations(db); err != nil {
		t.Fatalf("first RunMigrations() error = %v", err)
	}
	v1, _, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if err := RunMigrations(db); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
	v2, _, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != v2 {
		t.Errorf("version changed: %d -> %d (should be stable)", v1, v2)
	}
}

// TestMigrationDownAll tests rolling back all migrations
func TestMigrationDownAll(t *testing.T) {
	db := openTestDB(t)

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	start, _, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	for i := uint(0); i < start; i++ {
		if err := MigrateDown(db); err != nil {
			t.Fatalf("MigrateDown() iteration %d error = %v", i, err)
		}
	}
	for _, table := range schemaTables {
		if tableExists(t, db, table) {
			t.Errorf("table %s still exists after rolling back all migrations", table)
		}
	}
	version, _, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatalf("GetMigrationVersion() after down all error = %v", err)
	}
	if version != 0 {
		t.Errorf("version after rolling back all = %d, want 0", version)
	}
}

// cleanDatabase drops all tables and the schema_migrations table to start fresh
func cleanDatabase(t *testing.T, ctx context.Context, db *sql.DB) {
	t.Helper()
	for i := len(schemaTables) - 1; i >= 0; i-- {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS `+schemaTables[i]+` CASCADE`); err != nil {
			t.Logf("warning: clean database statement failed (may be expected): %v", err)
		}
	}
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS schema_migrations CASCADE`); err != nil {
		t.Logf("warning: drop schema_migrations failed: %v", err)
	}
}
