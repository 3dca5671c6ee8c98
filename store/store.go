// Package store is the data access layer for games, keys, platforms, keylists
// and raffles. Every read that feeds a paginated listing pre-joins the
// per-row counts it displays so rendering never needs a second query.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/gemuki/bot/crypto"
)

var (
	// ErrNotFound is returned when the referenced row does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("already exists")
	// ErrKeyUsed is returned when claiming a key that is no longer unused.
	ErrKeyUsed = errors.New("key already used")
)

// Store wraps a database handle and the sealer used for key values.
type Store struct {
	db     *sqlx.DB
	sealer crypto.Sealer
	now    func() time.Time
}

// New returns a Store. A nil sealer stores key values as plaintext.
func New(db *sqlx.DB, sealer crypto.Sealer) *Store {
	if sealer == nil {
		sealer = crypto.Plain{}
	}
	return &Store{db: db, sealer: sealer, now: time.Now}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// DB exposes the underlying handle for callers that need raw access (migrations, health checks).
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Warn("rollback failed", slog.Any("err", rbErr), slog.String("component", "store"))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func affectedOrNotFound(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}
