package store

import (
	"context"
	"fmt"
)

func (s *Store) ListPlatforms(ctx context.Context) ([]Platform, error) {
	var out []Platform
	if err := s.db.SelectContext(ctx, &out, `SELECT * FROM platform ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	return out, nil
}

func (s *Store) GetPlatformByName(ctx context.Context, name string) (Platform, error) {
	var p Platform
	err := s.db.GetContext(ctx, &p, `SELECT * FROM platform WHERE name = $1`, name)
	return p, translate(err)
}
