package entity

import (
	"time"
)

// Account is the aggregate root for the account domain. There is exactly one
// Account per external identity, per email, and per slug; the unique indexes
// on those columns are the arbiter when concurrent sign-ups race past the
// existence check.
//
// BillingProfile and PaymentMethod mirror the payment processor's records.
// They are never computed locally, only copied from processor responses.
type Account struct {
	ID                 string
	ExternalIdentityID string
	AccessToken        string
	RefreshToken       string
	Slug               string
	Email              string
	DisplayName        string
	AvatarURL          string
	IsAdmin            bool
	DefaultTeamSlug    string
	BillingProfile     *BillingProfile
	PaymentMethod      *PaymentMethod
	HasPaymentMethod   bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BillingProfile is the denormalized remote customer record.
type BillingProfile struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Currency        string    `json:"currency"`
	DefaultSourceID string    `json:"default_source_id"`
	Description     string    `json:"description"`
}

// PaymentMethod is the denormalized default payment method of the remote
// customer.
type PaymentMethod struct {
	ID       string `json:"id"`
	Brand    string `json:"brand"`
	Funding  string `json:"funding"`
	Country  string `json:"country"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"exp_month"`
	ExpYear  int64  `json:"exp_year"`
}

// PublicAccount is the fixed field set safe for external exposure. Every
// read-returning account operation returns this projection, never the full
// record, so token and billing internals cannot leak.
type PublicAccount struct {
	ID                string `json:"id"`
	DisplayName       string `json:"display_name"`
	Email             string `json:"email"`
	AvatarURL         string `json:"avatar_url"`
	Slug              string `json:"slug"`
	IdentityConnected bool   `json:"identity_connected"`
	DefaultTeamSlug   string `json:"default_team_slug"`
}

// Public returns the account's public projection.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:                a.ID,
		DisplayName:       a.DisplayName,
		Email:             a.Email,
		AvatarURL:         a.AvatarURL,
		Slug:              a.Slug,
		IdentityConnected: a.ExternalIdentityID != "",
		DefaultTeamSlug:   a.DefaultTeamSlug,
	}
}

// TokenUpdate refreshes identity token subfields. A nil field leaves the
// stored value untouched, so a sign-in carrying only an access token cannot
// clobber a previously stored refresh token.
type TokenUpdate struct {
	AccessToken  *string
	RefreshToken *string
}

// ProfileUpdate is the only field set a profile mutation may touch. Slug is
// carried even when unchanged so the write stays a single statement.
type ProfileUpdate struct {
	DisplayName string
	AvatarURL   string
	Slug        string
}

// BillingUpdate replaces both billing mirrors in one write; there is no
// intermediate state where profile and method disagree. MarkPaymentMethod is
// set on first attachment only; rotation leaves the flag as stored.
type BillingUpdate struct {
	Profile           BillingProfile
	Method            PaymentMethod
	MarkPaymentMethod bool
}
