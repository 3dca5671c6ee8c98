package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type NewKeylist struct {
	Name        string
	Description *string
	OwnerID     int64
}

// KeylistUpdate changes the non-nil fields of a keylist owned by OwnerID.
type KeylistUpdate struct {
	ID          int64
	OwnerID     int64
	Name        *string
	Description *string
	UserID      int64
}

// ListKeylists returns the keylists user owns, has been granted, or both.
func (s *Store) ListKeylists(ctx context.Context, user int64, origin KeylistOrigin) ([]KeylistDetails, error) {
	if origin == "" {
		origin = OriginAll
	}
	var out []KeylistDetails
	err := s.db.SelectContext(ctx, &out,
		`SELECT l.*, COUNT(kk.id) AS key_count, COALESCE(a.access_right, '') AS access_right
		 FROM keylist l
		 LEFT JOIN keylist_access a ON a.keylist_id = l.id AND a.target_user_id = $1
		 LEFT JOIN keylist_key kk ON kk.keylist_id = l.id
		 WHERE ($2::text IN ('All', 'Owned') AND l.owner_id = $1)
		    OR ($2::text IN ('All', 'Assigned') AND a.id IS NOT NULL)
		 GROUP BY l.id, a.access_right
		 ORDER BY l.name`, user, string(origin))
	if err != nil {
		return nil, fmt.Errorf("list keylists: %w", err)
	}
	return out, nil
}

// GetKeylistByName returns the keylist named name that user owns or has been
// granted. AccessRight is empty when user owns it. An owned list wins over a
// shared one of the same name; among shared lists the oldest wins.
func (s *Store) GetKeylistByName(ctx context.Context, name string, user int64) (KeylistDetails, error) {
	var l KeylistDetails
	err := s.db.GetContext(ctx, &l,
		`SELECT l.*, COUNT(kk.id) AS key_count,
			CASE WHEN l.owner_id = $2 THEN '' ELSE COALESCE(a.access_right, '') END AS access_right
		 FROM keylist l
		 LEFT JOIN keylist_access a ON a.keylist_id = l.id AND a.target_user_id = $2
		 LEFT JOIN keylist_key kk ON kk.keylist_id = l.id
		 WHERE l.name = $1 AND (l.owner_id = $2 OR a.id IS NOT NULL)
		 GROUP BY l.id, a.access_right
		 ORDER BY (l.owner_id = $2) DESC, l.id
		 LIMIT 1`, name, user)
	return l, translate(err)
}

func (s *Store) CreateKeylist(ctx context.Context, in NewKeylist) (Keylist, error) {
	var l Keylist
	err := s.db.GetContext(ctx, &l,
		`INSERT INTO keylist (name, description, owner_id, create_date, create_user_id)
		 VALUES ($1, $2, $3, $4, $3) RETURNING *`,
		in.Name, in.Description, in.OwnerID, s.now())
	if err != nil {
		return Keylist{}, translate(err)
	}
	return l, nil
}

func (s *Store) UpdateKeylist(ctx context.Context, in KeylistUpdate) (Keylist, error) {
	var l Keylist
	err := s.db.GetContext(ctx, &l,
		`UPDATE keylist SET
			name = COALESCE($3, name),
			description = COALESCE($4, description),
			modify_date = $5,
			modify_user_id = $6
		 WHERE id = $1 AND owner_id = $2 RETURNING *`,
		in.ID, in.OwnerID, in.Name, in.Description, s.now(), in.UserID)
	if err != nil {
		return Keylist{}, translate(err)
	}
	return l, nil
}

// DeleteKeylist removes a keylist with its access grants and key references.
func (s *Store) DeleteKeylist(ctx context.Context, id, owner int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM keylist WHERE id = $1 AND owner_id = $2)`, id, owner); err != nil {
			return fmt.Errorf("lookup keylist: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM keylist_access WHERE keylist_id = $1`, id); err != nil {
			return fmt.Errorf("delete keylist access: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM keylist_key WHERE keylist_id = $1`, id); err != nil {
			return fmt.Errorf("delete keylist keys: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM keylist WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete keylist: %w", err)
		}
		return nil
	})
}

// AddKeylistKey adds a key to a keylist. The key must be owned by user, who
// is either the list owner or a grantee with write access;
// otherwise ErrNotFound is returned. Adding a key twice returns ErrConflict.
func (s *Store) AddKeylistKey(ctx context.Context, keylistID, gamekeyID, user int64) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO keylist_key (keylist_id, gamekey_id, create_date, create_user_id)
		 SELECT $1, k.id, $4, $3 FROM game_key k WHERE k.id = $2 AND k.owner_id = $3`,
		keylistID, gamekeyID, user, s.now())
	if err != nil {
		return translate(err)
	}
	_, err = affectedOrNotFound(res)
	return err
}

func (s *Store) RemoveKeylistKey(ctx context.Context, keylistID, gamekeyID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM keylist_key WHERE keylist_id = $1 AND gamekey_id = $2`, keylistID, gamekeyID)
	if err != nil {
		return fmt.Errorf("remove keylist key: %w", err)
	}
	_, err = affectedOrNotFound(res)
	return err
}

// ListKeylistKeys returns the keys referenced by a keylist.
func (s *Store) ListKeylistKeys(ctx context.Context, keylistID int64) ([]GameKeyDetails, error) {
	var out []GameKeyDetails
	q := keyDetailsSelect + `
		JOIN keylist_key kk ON kk.gamekey_id = k.id
		WHERE kk.keylist_id = $1
		ORDER BY g.title, k.id`
	if err := s.db.SelectContext(ctx, &out, q, keylistID); err != nil {
		return nil, fmt.Errorf("list keylist keys: %w", err)
	}
	for i := range out {
		if err := s.openKey(&out[i].GameKey); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GrantKeylistAccess gives target the access right on a keylist, replacing any previous grant.
func (s *Store) GrantKeylistAccess(ctx context.Context, keylistID, target int64, right AccessRight, user int64) (KeylistAccess, error) {
	var a KeylistAccess
	now := s.now()
	err := s.db.GetContext(ctx, &a,
		`INSERT INTO keylist_access (keylist_id, target_user_id, access_right, create_date, create_user_id)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (keylist_id, target_user_id) DO UPDATE SET
			access_right = EXCLUDED.access_right,
			modify_date = $4,
			modify_user_id = $5
		 RETURNING *`,
		keylistID, target, string(right), now, user)
	if err != nil {
		return KeylistAccess{}, translate(err)
	}
	return a, nil
}

func (s *Store) RevokeKeylistAccess(ctx context.Context, keylistID, target int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM keylist_access WHERE keylist_id = $1 AND target_user_id = $2`, keylistID, target)
	if err != nil {
		return fmt.Errorf("revoke keylist access: %w", err)
	}
	_, err = affectedOrNotFound(res)
	return err
}
