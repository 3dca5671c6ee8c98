package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// NewGame holds the values for CreateGame.
type NewGame struct {
	Title       string
	Description *string
	ImageLink   *string
	UserID      int64
}

// GameUpdate changes the non-nil fields of a game.
type GameUpdate struct {
	ID          int64
	Title       *string
	Description *string
	ImageLink   *string
	UserID      int64
}

const gameDetailsSelect = `SELECT g.*, COUNT(k.id) AS key_count
	FROM game g
	LEFT JOIN game_key k ON k.game_id = g.id AND k.keystate = 'Unused'`

// ListGameTitles returns every game title in alphabetical order.
func (s *Store) ListGameTitles(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.db.SelectContext(ctx, &out, `SELECT title FROM game ORDER BY title`); err != nil {
		return nil, fmt.Errorf("list game titles: %w", err)
	}
	return out, nil
}

// ListGameDetails returns all games with their unused key count.
func (s *Store) ListGameDetails(ctx context.Context) ([]GameDetails, error) {
	var out []GameDetails
	q := gameDetailsSelect + ` GROUP BY g.id ORDER BY g.title`
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list game details: %w", err)
	}
	return out, nil
}

func (s *Store) GetGame(ctx context.Context, id int64) (Game, error) {
	var g Game
	err := s.db.GetContext(ctx, &g, `SELECT * FROM game WHERE id = $1`, id)
	return g, translate(err)
}

// GetGameByTitle matches the title case-insensitively.
func (s *Store) GetGameByTitle(ctx context.Context, title string) (Game, error) {
	var g Game
	err := s.db.GetContext(ctx, &g, `SELECT * FROM game WHERE lower(title) = lower($1)`, title)
	return g, translate(err)
}

// GetGameDetails returns one game by title with its unused key count.
func (s *Store) GetGameDetails(ctx context.Context, title string) (GameDetails, error) {
	var g GameDetails
	q := gameDetailsSelect + ` WHERE lower(g.title) = lower($1) GROUP BY g.id`
	err := s.db.GetContext(ctx, &g, q, title)
	return g, translate(err)
}

// CreateGame inserts a game. Duplicate titles return ErrConflict.
func (s *Store) CreateGame(ctx context.Context, in NewGame) (Game, error) {
	var g Game
	err := s.db.GetContext(ctx, &g,
		`INSERT INTO game (title, description, image_link, create_date, create_user_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING *`,
		in.Title, in.Description, in.ImageLink, s.now(), in.UserID)
	if err != nil {
		return Game{}, translate(err)
	}
	return g, nil
}

func (s *Store) UpdateGame(ctx context.Context, in GameUpdate) (Game, error) {
	var g Game
	err := s.db.GetContext(ctx, &g,
		`UPDATE game SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			image_link = COALESCE($4, image_link),
			modify_date = $5,
			modify_user_id = $6
		 WHERE id = $1 RETURNING *`,
		in.ID, in.Title, in.Description, in.ImageLink, s.now(), in.UserID)
	if err != nil {
		return Game{}, translate(err)
	}
	return g, nil
}

// DeleteGame removes a game and all of its keys in one transaction. Keylist and
// raffle references to those keys cascade.
func (s *Store) DeleteGame(ctx context.Context, id int64) (DeleteResult, error) {
	var res DeleteResult
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		r, err := tx.ExecContext(ctx, `DELETE FROM game_key WHERE game_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete game keys: %w", err)
		}
		if res.Keys, err = r.RowsAffected(); err != nil {
			return err
		}
		r, err = tx.ExecContext(ctx, `DELETE FROM game WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete game: %w", err)
		}
		res.Games, err = affectedOrNotFound(r)
		return err
	})
	if err != nil {
		return DeleteResult{}, err
	}
	return res, nil
}

func (s *Store) CountGames(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM game`); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}
