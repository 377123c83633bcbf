package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamdeckhq/teamdeck/internal/domain/entity"
	"github.com/teamdeckhq/teamdeck/internal/domain/repository"
)

type TeamRepository struct {
	pool *pgxpool.Pool
}

func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

func (r *TeamRepository) GetByID(ctx context.Context, id string) (*entity.Team, error) {
	t := &entity.Team{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, slug, name, created_at FROM teams WHERE id::text = $1
	`, id)
	if err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *TeamRepository) MemberIDs(ctx context.Context, teamID string) ([]string, error) {
	// Existence is checked separately so an empty team is distinguishable
	// from a missing one.
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM teams WHERE id::text = $1)`, teamID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, `SELECT account_id FROM team_members WHERE team_id = $1`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ repository.TeamRepository = (*TeamRepository)(nil)
