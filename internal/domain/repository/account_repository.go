package repository

import (
	"context"
	"errors"

	"github.com/teamdeckhq/teamdeck/internal/domain/entity"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// AccountRepository defines the storage operations for accounts. Mutations
// are field-scoped: each Update method may only touch the columns named by
// its update struct.
type AccountRepository interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetByExternalIdentityID(ctx context.Context, externalID string) (*entity.Account, error)
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Account, error)
	UpdateTokens(ctx context.Context, id string, upd entity.TokenUpdate) error
	UpdateProfile(ctx context.Context, id string, upd entity.ProfileUpdate) error
	UpdateBilling(ctx context.Context, id string, upd entity.BillingUpdate) error
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// TeamRepository resolves teams and their member sets.
type TeamRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Team, error)
	// MemberIDs returns the account ids of the team's members, or ErrNotFound
	// when the team does not exist.
	MemberIDs(ctx context.Context, teamID string) ([]string, error)
}

// InvitationRepository exposes the pending-invitation count consulted during
// sign-up.
type InvitationRepository interface {
	CountPendingByEmail(ctx context.Context, email string) (int, error)
}
