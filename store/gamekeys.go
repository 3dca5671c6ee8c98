package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gemuki/bot/crypto"
)

// NewGameKey holds the values for CreateGameKey.
type NewGameKey struct {
	GameID         int64
	PlatformID     int64
	Value          string
	State          Keystate
	PageLink       *string
	Notes          *string
	ExpirationDate *time.Time
	OwnerID        int64
	UserID         int64
}

// GameKeyUpdate changes the non-nil fields of a key owned by OwnerID.
type GameKeyUpdate struct {
	ID             int64
	OwnerID        int64
	GameID         *int64
	PlatformID     *int64
	Value          *string
	State          *Keystate
	PageLink       *string
	Notes          *string
	ExpirationDate *time.Time
	UserID         int64
}

const keyDetailsSelect = `SELECT k.*,
		g.title AS game_title,
		g.description AS game_description,
		g.image_link AS game_image_link,
		p.name AS platform_name
	FROM game_key k
	JOIN game g ON g.id = k.game_id
	JOIN platform p ON p.id = k.platform_id`

func (s *Store) openKey(k *GameKey) error {
	v, err := s.sealer.Open(k.Value)
	if err != nil {
		return fmt.Errorf("open key %d: %w", k.ID, err)
	}
	k.Value = v
	return nil
}

// GetGameKey returns a key owned by owner.
func (s *Store) GetGameKey(ctx context.Context, id, owner int64) (GameKeyDetails, error) {
	var k GameKeyDetails
	err := s.db.GetContext(ctx, &k, keyDetailsSelect+` WHERE k.id = $1 AND k.owner_id = $2`, id, owner)
	if err != nil {
		return GameKeyDetails{}, translate(err)
	}
	if err := s.openKey(&k.GameKey); err != nil {
		return GameKeyDetails{}, err
	}
	return k, nil
}

// ListGameKeyDetails returns the keys of a game owned by owner, narrowed by filter.
func (s *Store) ListGameKeyDetails(ctx context.Context, gameID, owner int64, filter KeyFilter) ([]GameKeyDetails, error) {
	var out []GameKeyDetails
	q := keyDetailsSelect + `
		WHERE k.game_id = $1 AND k.owner_id = $2
		  AND ($3::text = '' OR k.keystate = $3)
		  AND ($4::text = '' OR p.name = $4)
		ORDER BY k.id`
	if err := s.db.SelectContext(ctx, &out, q, gameID, owner, string(filter.State), filter.Platform); err != nil {
		return nil, fmt.Errorf("list game keys: %w", err)
	}
	for i := range out {
		if err := s.openKey(&out[i].GameKey); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListClaimableKeyIDs returns ids of unused, unexpired keys owned by owner.
func (s *Store) ListClaimableKeyIDs(ctx context.Context, owner int64) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids,
		`SELECT id FROM game_key
		 WHERE owner_id = $1 AND keystate = 'Unused'
		   AND (expiration_date IS NULL OR expiration_date > $2)
		 ORDER BY id`, owner, s.now())
	if err != nil {
		return nil, fmt.Errorf("list claimable keys: %w", err)
	}
	return ids, nil
}

func (s *Store) CreateGameKey(ctx context.Context, in NewGameKey) (GameKey, error) {
	if in.State == "" {
		in.State = KeyUnused
	}
	sealed, err := s.sealer.Seal(in.Value)
	if err != nil {
		return GameKey{}, fmt.Errorf("seal key: %w", err)
	}
	var k GameKey
	err = s.db.GetContext(ctx, &k,
		`INSERT INTO game_key (game_id, platform_id, value, keystate, page_link, notes,
			owner_id, expiration_date, create_date, create_user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING *`,
		in.GameID, in.PlatformID, sealed, string(in.State), in.PageLink, in.Notes,
		in.OwnerID, in.ExpirationDate, s.now(), in.UserID)
	if err != nil {
		return GameKey{}, translate(err)
	}
	k.Value = in.Value
	return k, nil
}

func (s *Store) UpdateGameKey(ctx context.Context, in GameKeyUpdate) (GameKey, error) {
	var value *string
	if in.Value != nil {
		sealed, err := s.sealer.Seal(*in.Value)
		if err != nil {
			return GameKey{}, fmt.Errorf("seal key: %w", err)
		}
		value = &sealed
	}
	var state *string
	if in.State != nil {
		v := string(*in.State)
		state = &v
	}
	var k GameKey
	err := s.db.GetContext(ctx, &k,
		`UPDATE game_key SET
			game_id = COALESCE($3, game_id),
			platform_id = COALESCE($4, platform_id),
			value = COALESCE($5, value),
			keystate = COALESCE($6, keystate),
			page_link = COALESCE($7, page_link),
			notes = COALESCE($8, notes),
			expiration_date = COALESCE($9, expiration_date),
			modify_date = $10,
			modify_user_id = $11
		 WHERE id = $1 AND owner_id = $2 RETURNING *`,
		in.ID, in.OwnerID, in.GameID, in.PlatformID, value, state,
		in.PageLink, in.Notes, in.ExpirationDate, s.now(), in.UserID)
	if err != nil {
		return GameKey{}, translate(err)
	}
	if err := s.openKey(&k); err != nil {
		return GameKey{}, err
	}
	return k, nil
}

// DeleteGameKey removes a key owned by owner.
func (s *Store) DeleteGameKey(ctx context.Context, id, owner int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM game_key WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return 0, fmt.Errorf("delete game key: %w", err)
	}
	return affectedOrNotFound(res)
}

// ClaimGameKey moves a key from Unused to Used in a single statement so two
// concurrent claims cannot both succeed. It returns ErrNotFound when the key does
// not exist for owner and ErrKeyUsed when it was already claimed.
func (s *Store) ClaimGameKey(ctx context.Context, id, owner, claimer int64) (GameKeyDetails, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE game_key SET keystate = 'Used', modify_date = $3, modify_user_id = $4
		 WHERE id = $1 AND owner_id = $2 AND keystate = 'Unused'`,
		id, owner, s.now(), claimer)
	if err != nil {
		return GameKeyDetails{}, fmt.Errorf("claim game key: %w", err)
	}
	if _, err := affectedOrNotFound(res); err != nil {
		if _, getErr := s.GetGameKey(ctx, id, owner); getErr != nil {
			return GameKeyDetails{}, getErr
		}
		return GameKeyDetails{}, ErrKeyUsed
	}
	return s.GetGameKey(ctx, id, owner)
}

// KeyStats counts keys, restricted to owner when owner is non-nil.
func (s *Store) KeyStats(ctx context.Context, owner *int64) (KeyStats, error) {
	var st KeyStats
	err := s.db.GetContext(ctx, &st,
		`SELECT COUNT(*) AS total,
			COUNT(*) FILTER (WHERE keystate = 'Unused') AS unused,
			COUNT(*) FILTER (WHERE keystate = 'Used') AS used
		 FROM game_key
		 WHERE ($1::bigint IS NULL OR owner_id = $1)`, owner)
	if err != nil {
		return KeyStats{}, fmt.Errorf("key stats: %w", err)
	}
	return st, nil
}

// CountKeyCreators counts distinct users that added keys.
func (s *Store) CountKeyCreators(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(DISTINCT create_user_id) FROM game_key`); err != nil {
		return 0, fmt.Errorf("count key creators: %w", err)
	}
	return n, nil
}

// SealStoredKeys re-writes every unsealed key value with the store's sealer.
// With dryRun set it only counts the candidates.
func (s *Store) SealStoredKeys(ctx context.Context, dryRun bool) (int, error) {
	if _, ok := s.sealer.(crypto.Plain); ok {
		return 0, errors.New("sealing requires an encryption key")
	}
	var rows []struct {
		ID    int64  `db:"id"`
		Value string `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, value FROM game_key WHERE value NOT LIKE $1 ORDER BY id`, crypto.SealedPrefix+"%"); err != nil {
		return 0, fmt.Errorf("list unsealed keys: %w", err)
	}
	if dryRun || len(rows) == 0 {
		return len(rows), nil
	}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, r := range rows {
			sealed, err := s.sealer.Seal(r.Value)
			if err != nil {
				return fmt.Errorf("seal key %d: %w", r.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `UPDATE game_key SET value = $2 WHERE id = $1`, r.ID, sealed); err != nil {
				return fmt.Errorf("update key %d: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
