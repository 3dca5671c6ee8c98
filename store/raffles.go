package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrInvalidState is returned when a raffle transition is not allowed from its current state.
	ErrInvalidState = errors.New("raffle is not in a state that allows this")
	// ErrKeyInRaffle is returned when a key already sits in the pool of an open raffle.
	ErrKeyInRaffle = errors.New("key is already in an open raffle")
	// ErrPrizeGone is returned by FinishRaffle when a drawn key was claimed or
	// handed out after the draw. Nothing is written; the caller draws again.
	ErrPrizeGone = errors.New("raffle key is no longer available")
)

type NewRaffle struct {
	Name            string
	Description     *string
	ImageLink       *string
	OwnerID         int64
	Duration        time.Duration
	PossibleWinners int
}

const raffleDetailsSelect = `SELECT r.*,
		(SELECT COUNT(*) FROM key_raffle_key rk WHERE rk.key_raffle_id = r.id) AS key_count,
		(SELECT COUNT(*) FROM key_raffle_entry e WHERE e.key_raffle_id = r.id) AS entry_count
	FROM key_raffle r`

func (s *Store) CreateRaffle(ctx context.Context, in NewRaffle) (Raffle, error) {
	if in.PossibleWinners <= 0 {
		in.PossibleWinners = 1
	}
	var r Raffle
	err := s.db.GetContext(ctx, &r,
		`INSERT INTO key_raffle (name, description, image_link, owner_id, state,
			duration_in_seconds, possible_winners, create_date, create_user_id)
		 VALUES ($1, $2, $3, $4, 'Created', $5, $6, $7, $4) RETURNING *`,
		in.Name, in.Description, in.ImageLink, in.OwnerID,
		int64(in.Duration/time.Second), in.PossibleWinners, s.now())
	if err != nil {
		return Raffle{}, translate(err)
	}
	return r, nil
}

func (s *Store) GetRaffle(ctx context.Context, id int64) (Raffle, error) {
	var r Raffle
	err := s.db.GetContext(ctx, &r, `SELECT * FROM key_raffle WHERE id = $1`, id)
	return r, translate(err)
}

func (s *Store) GetRaffleByName(ctx context.Context, name string, owner int64) (RaffleDetails, error) {
	var r RaffleDetails
	err := s.db.GetContext(ctx, &r, raffleDetailsSelect+` WHERE r.name = $1 AND r.owner_id = $2`, name, owner)
	return r, translate(err)
}

// ListRaffles returns the raffles of owner, newest first, with key and entry counts.
func (s *Store) ListRaffles(ctx context.Context, owner int64) ([]RaffleDetails, error) {
	var out []RaffleDetails
	q := raffleDetailsSelect + ` WHERE r.owner_id = $1 ORDER BY r.create_date DESC, r.id DESC`
	if err := s.db.SelectContext(ctx, &out, q, owner); err != nil {
		return nil, fmt.Errorf("list raffles: %w", err)
	}
	return out, nil
}

const keyInOpenRaffle = `SELECT 1 FROM key_raffle_key rk
	JOIN key_raffle r ON r.id = rk.key_raffle_id
	WHERE rk.gamekey_id = $1 AND r.state IN ('Created', 'Running')`

// AddRaffleKey puts an unused key of owner into the pool of an open raffle.
// A key sits in at most one open pool: adding it to the same raffle again
// returns ErrConflict, to another open raffle ErrKeyInRaffle.
func (s *Store) AddRaffleKey(ctx context.Context, raffleID, gamekeyID, owner int64) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO key_raffle_key (key_raffle_id, gamekey_id, create_date, create_user_id)
		 SELECT r.id, k.id, $4, $3
		 FROM key_raffle r
		 JOIN game_key k ON k.id = $2 AND k.owner_id = $3 AND k.keystate = 'Unused'
		 WHERE r.id = $1 AND r.owner_id = $3 AND r.state IN ('Created', 'Running')
		   AND NOT EXISTS (SELECT 1 FROM key_raffle_key rk
			JOIN key_raffle o ON o.id = rk.key_raffle_id
			WHERE rk.gamekey_id = k.id AND o.id <> r.id AND o.state IN ('Created', 'Running'))`,
		raffleID, gamekeyID, owner, s.now())
	if err != nil {
		return translate(err)
	}
	if _, err := affectedOrNotFound(res); !errors.Is(err, ErrNotFound) {
		return err
	}
	var pooled bool
	if err := s.db.GetContext(ctx, &pooled, `SELECT EXISTS (`+keyInOpenRaffle+`)`, gamekeyID); err != nil {
		return fmt.Errorf("check raffle pools: %w", err)
	}
	if pooled {
		return ErrKeyInRaffle
	}
	return ErrNotFound
}

// StartRaffle moves a created raffle to Running and schedules its end.
func (s *Store) StartRaffle(ctx context.Context, id, owner int64, channelID string) (Raffle, error) {
	var r Raffle
	err := s.db.GetContext(ctx, &r,
		`UPDATE key_raffle SET
			state = 'Running',
			start_at = $3,
			end_at = $3 + duration_in_seconds * INTERVAL '1 second',
			channel_id = $4,
			modify_date = $3,
			modify_user_id = $2
		 WHERE id = $1 AND owner_id = $2 AND state = 'Created' RETURNING *`,
		id, owner, s.now(), channelID)
	if err != nil {
		if errors.Is(translate(err), ErrNotFound) {
			return Raffle{}, ErrInvalidState
		}
		return Raffle{}, translate(err)
	}
	return r, nil
}

// UnstartRaffle returns a running raffle without entries to Created. It undoes
// StartRaffle when the join message could not be posted.
func (s *Store) UnstartRaffle(ctx context.Context, id, owner int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE key_raffle SET state = 'Created', start_at = NULL, end_at = NULL, channel_id = NULL,
			modify_date = $3, modify_user_id = $2
		 WHERE id = $1 AND owner_id = $2 AND state = 'Running'
		   AND NOT EXISTS (SELECT 1 FROM key_raffle_entry e WHERE e.key_raffle_id = $1)`,
		id, owner, s.now())
	if err != nil {
		return fmt.Errorf("unstart raffle: %w", err)
	}
	if _, err := affectedOrNotFound(res); err != nil {
		return ErrInvalidState
	}
	return nil
}

// SetRaffleMessage records the message that carries the join control.
func (s *Store) SetRaffleMessage(ctx context.Context, id int64, messageID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE key_raffle SET message_id = $2 WHERE id = $1`, id, messageID)
	if err != nil {
		return fmt.Errorf("set raffle message: %w", err)
	}
	_, err = affectedOrNotFound(res)
	return err
}

func (s *Store) AbortRaffle(ctx context.Context, id, owner int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE key_raffle SET state = 'Aborted', modify_date = $3, modify_user_id = $2
		 WHERE id = $1 AND owner_id = $2 AND state IN ('Created', 'Running')`,
		id, owner, s.now())
	if err != nil {
		return fmt.Errorf("abort raffle: %w", err)
	}
	if _, err := affectedOrNotFound(res); err != nil {
		return ErrInvalidState
	}
	return nil
}

// DeleteRaffle removes a raffle that is not running. Pool, entries and winners cascade.
func (s *Store) DeleteRaffle(ctx context.Context, id, owner int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM key_raffle WHERE id = $1 AND owner_id = $2 AND state <> 'Running'`, id, owner)
	if err != nil {
		return fmt.Errorf("delete raffle: %w", err)
	}
	if _, err := affectedOrNotFound(res); err != nil {
		return ErrInvalidState
	}
	return nil
}

// AddRaffleEntry records user as an entrant of a running raffle. Joining twice returns ErrConflict.
func (s *Store) AddRaffleEntry(ctx context.Context, raffleID, user int64) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO key_raffle_entry (key_raffle_id, user_id, create_date)
		 SELECT id, $2, $3 FROM key_raffle WHERE id = $1 AND state = 'Running'`,
		raffleID, user, s.now())
	if err != nil {
		return translate(err)
	}
	if _, err := affectedOrNotFound(res); err != nil {
		return ErrInvalidState
	}
	return nil
}

func (s *Store) ListRaffleEntries(ctx context.Context, raffleID int64) ([]int64, error) {
	var out []int64
	if err := s.db.SelectContext(ctx, &out,
		`SELECT user_id FROM key_raffle_entry WHERE key_raffle_id = $1 ORDER BY id`, raffleID); err != nil {
		return nil, fmt.Errorf("list raffle entries: %w", err)
	}
	return out, nil
}

// ListRaffleKeys returns the still unused keys in a raffle pool with their values opened.
func (s *Store) ListRaffleKeys(ctx context.Context, raffleID int64) ([]RaffleKey, error) {
	var out []RaffleKey
	err := s.db.SelectContext(ctx, &out,
		`SELECT rk.id, rk.key_raffle_id, rk.gamekey_id, k.value,
			g.title AS game_title, p.name AS platform_name
		 FROM key_raffle_key rk
		 JOIN game_key k ON k.id = rk.gamekey_id
		 JOIN game g ON g.id = k.game_id
		 JOIN platform p ON p.id = k.platform_id
		 WHERE rk.key_raffle_id = $1 AND k.keystate = 'Unused'
		 ORDER BY rk.id`, raffleID)
	if err != nil {
		return nil, fmt.Errorf("list raffle keys: %w", err)
	}
	for i := range out {
		v, err := s.sealer.Open(out[i].Value)
		if err != nil {
			return nil, fmt.Errorf("open raffle key %d: %w", out[i].GameKeyID, err)
		}
		out[i].Value = v
	}
	return out, nil
}

// FinishRaffle ends a running raffle, records the winners and hands each won
// key to its winner in one transaction. A raffle that is no longer running
// returns ErrInvalidState, so concurrent closers finish it at most once.
// Keys are only handed over while they are still unused and owned by the
// raffle owner; otherwise the transaction rolls back with ErrPrizeGone.
func (s *Store) FinishRaffle(ctx context.Context, id int64, winners []Winner) error {
	now := s.now()
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var owner int64
		err := tx.GetContext(ctx, &owner,
			`UPDATE key_raffle SET state = 'Ended', end_at = LEAST(COALESCE(end_at, $2), $2), modify_date = $2
			 WHERE id = $1 AND state = 'Running' RETURNING owner_id`, id, now)
		if err != nil {
			if errors.Is(translate(err), ErrNotFound) {
				return ErrInvalidState
			}
			return fmt.Errorf("end raffle: %w", err)
		}
		for _, w := range winners {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO key_raffle_winner (key_raffle_id, key_raffle_key_id, winner_id, create_date, create_user_id)
				 VALUES ($1, $2, $3, $4, $5)`, id, w.RaffleKeyID, w.UserID, now, owner); err != nil {
				return fmt.Errorf("record winner: %w", err)
			}
			res, err := tx.ExecContext(ctx,
				`UPDATE game_key SET keystate = 'Used', owner_id = $2, modify_date = $3, modify_user_id = $4
				 WHERE id = $1 AND owner_id = $4 AND keystate = 'Unused'`, w.GameKeyID, w.UserID, now, owner)
			if err != nil {
				return fmt.Errorf("assign key: %w", err)
			}
			if _, err := affectedOrNotFound(res); errors.Is(err, ErrNotFound) {
				return fmt.Errorf("key %d: %w", w.GameKeyID, ErrPrizeGone)
			} else if err != nil {
				return fmt.Errorf("assign key: %w", err)
			}
		}
		return nil
	})
}

// ListDueRaffles returns running raffles whose end time is at or before now.
func (s *Store) ListDueRaffles(ctx context.Context, now time.Time) ([]Raffle, error) {
	var out []Raffle
	if err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM key_raffle WHERE state = 'Running' AND end_at <= $1 ORDER BY end_at`, now); err != nil {
		return nil, fmt.Errorf("list due raffles: %w", err)
	}
	return out, nil
}
