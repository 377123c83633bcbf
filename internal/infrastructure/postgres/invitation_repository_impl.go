package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamdeckhq/teamdeck/internal/domain/repository"
)

type InvitationRepository struct {
	pool *pgxpool.Pool
}

func NewInvitationRepository(pool *pgxpool.Pool) *InvitationRepository {
	return &InvitationRepository{pool: pool}
}

func (r *InvitationRepository) CountPendingByEmail(ctx context.Context, email string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM invitations WHERE email = $1 AND NOT accepted
	`, email).Scan(&n)
	return n, err
}

var _ repository.InvitationRepository = (*InvitationRepository)(nil)
