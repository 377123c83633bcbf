package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamdeckhq/teamdeck/internal/domain/entity"
	"github.com/teamdeckhq/teamdeck/internal/domain/repository"
)

const accountColumns = `id, external_identity_id, access_token, refresh_token, slug, email,
	display_name, avatar_url, is_admin, default_team_slug,
	billing_profile, payment_method, has_payment_method, created_at, updated_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (external_identity_id, access_token, refresh_token, slug, email,
			display_name, avatar_url, default_team_slug)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, is_admin, created_at, updated_at
	`, a.ExternalIdentityID, a.AccessToken, a.RefreshToken, a.Slug, a.Email,
		a.DisplayName, a.AvatarURL, a.DefaultTeamSlug)

	return row.Scan(&a.ID, &a.IsAdmin, &a.CreatedAt, &a.UpdatedAt)
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *AccountRepository) GetByExternalIdentityID(ctx context.Context, externalID string) (*entity.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE external_identity_id = $1`, externalID)
	return scanAccount(row)
}

func (r *AccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*entity.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id::text = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateTokens merges the supplied token subfields. NULL parameters fall back
// to the stored value via COALESCE, so a partial update cannot erase the
// other token.
func (r *AccountRepository) UpdateTokens(ctx context.Context, id string, upd entity.TokenUpdate) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET access_token  = COALESCE($1, access_token),
		    refresh_token = COALESCE($2, refresh_token),
		    updated_at    = now()
		WHERE id = $3
	`, upd.AccessToken, upd.RefreshToken, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, upd entity.ProfileUpdate) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET display_name = $1, avatar_url = $2, slug = $3, updated_at = now()
		WHERE id = $4
	`, upd.DisplayName, upd.AvatarURL, upd.Slug, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateBilling replaces both billing mirrors in a single statement.
// has_payment_method only ever transitions to true, on first attachment.
func (r *AccountRepository) UpdateBilling(ctx context.Context, id string, upd entity.BillingUpdate) error {
	profile, err := json.Marshal(upd.Profile)
	if err != nil {
		return err
	}
	method, err := json.Marshal(upd.Method)
	if err != nil {
		return err
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET billing_profile    = $1,
		    payment_method     = $2,
		    has_payment_method = has_payment_method OR $3,
		    updated_at         = now()
		WHERE id = $4
	`, profile, method, upd.MarkPaymentMethod, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

func scanAccount(row pgx.Row) (*entity.Account, error) {
	a := &entity.Account{}
	var profile, method []byte
	if err := row.Scan(&a.ID, &a.ExternalIdentityID, &a.AccessToken, &a.RefreshToken, &a.Slug, &a.Email,
		&a.DisplayName, &a.AvatarURL, &a.IsAdmin, &a.DefaultTeamSlug,
		&profile, &method, &a.HasPaymentMethod, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if len(profile) > 0 {
		a.BillingProfile = &entity.BillingProfile{}
		if err := json.Unmarshal(profile, a.BillingProfile); err != nil {
			return nil, err
		}
	}
	if len(method) > 0 {
		a.PaymentMethod = &entity.PaymentMethod{}
		if err := json.Unmarshal(method, a.PaymentMethod); err != nil {
			return nil, err
		}
	}
	return a, nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
