package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/teamdeckhq/teamdeck/internal/domain/entity"
	repo "github.com/teamdeckhq/teamdeck/internal/domain/repository"
	"github.com/teamdeckhq/teamdeck/pkg/billing"
)

var (
	// ErrBadData is returned when a required identifier is missing.
	ErrBadData = errors.New("bad data")
	// ErrTeamNotFound covers both a missing team and a caller who is not a
	// member, so non-members cannot probe team existence.
	ErrTeamNotFound = errors.New("team not found")
	// ErrAccountNotFound is returned when the account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNoBillingProfile is returned when rotation is attempted before any
	// payment profile was attached.
	ErrNoBillingProfile = errors.New("no billing profile attached")
)

// SlugAllocator hands out slugs unique among stored accounts at call time.
type SlugAllocator interface {
	Allocate(ctx context.Context, desired string) (string, error)
}

// Service is the account lifecycle manager. It owns the canonical account
// record and coordinates the payment gateway, notifier, slug allocator, and
// team store. Operations are request-scoped; each mutation is a single
// field-scoped update and the read-then-write flows rely on the storage
// layer's unique indexes as the arbiter under concurrency.
type Service struct {
	Accounts repo.AccountRepository
	Teams    repo.TeamRepository
	Invites  repo.InvitationRepository
	Slugs    SlugAllocator
	Gateway  billing.Gateway
	Notify   Notifier
	Logger   *logrus.Logger

	ES              *elasticsearch.Client
	ESAccountsIndex string
}

func NewService(accounts repo.AccountRepository, teams repo.TeamRepository, invites repo.InvitationRepository,
	slugs SlugAllocator, gateway billing.Gateway, notify Notifier, logger *logrus.Logger,
	es *elasticsearch.Client, esAccountsIndex string) *Service {
	return &Service{
		Accounts:        accounts,
		Teams:           teams,
		Invites:         invites,
		Slugs:           slugs,
		Gateway:         gateway,
		Notify:          notify,
		Logger:          logger,
		ES:              es,
		ESAccountsIndex: esAccountsIndex,
	}
}

// SignInInput carries the already-verified identity handed down by the OAuth
// layer. Token fields may be empty or partial.
type SignInInput struct {
	ExternalIdentityID string
	Email              string
	AccessToken        string
	RefreshToken       string
	DisplayName        string
	AvatarURL          string
}

// SignInOrSignUp resolves the account for an external identity, creating it
// on first sign-in. Safe to call repeatedly: after the first successful
// creation it degrades to a token update or a pure read.
//
// On the update path the returned projection is the pre-update snapshot; the
// token write result is not re-read.
func (s *Service) SignInOrSignUp(ctx context.Context, in SignInInput) (*entity.PublicAccount, error) {
	if in.ExternalIdentityID == "" {
		return nil, ErrBadData
	}

	acc, err := s.Accounts.GetByExternalIdentityID(ctx, in.ExternalIdentityID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if acc != nil {
		if in.AccessToken != "" || in.RefreshToken != "" {
			upd := entity.TokenUpdate{}
			if in.AccessToken != "" {
				upd.AccessToken = &in.AccessToken
			}
			if in.RefreshToken != "" {
				upd.RefreshToken = &in.RefreshToken
			}
			if err := s.Accounts.UpdateTokens(ctx, acc.ID, upd); err != nil {
				return nil, err
			}
		}
		pub := acc.Public()
		return &pub, nil
	}

	slug, err := s.Slugs.Allocate(ctx, in.DisplayName)
	if err != nil {
		return nil, err
	}

	acc = &entity.Account{
		ExternalIdentityID: in.ExternalIdentityID,
		AccessToken:        in.AccessToken,
		RefreshToken:       in.RefreshToken,
		Slug:               slug,
		Email:              in.Email,
		DisplayName:        in.DisplayName,
		AvatarURL:          in.AvatarURL,
		DefaultTeamSlug:    "",
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.Accounts.Create(ctx, acc); err != nil {
		return nil, err
	}

	// Best-effort from here on: neither the invitation lookup nor the
	// notification calls may fail the sign-up or roll back the account.
	pending, err := s.Invites.CountPendingByEmail(ctx, in.Email)
	if err != nil {
		s.logOutcome(Outcome{Name: "invitation lookup", Err: err}, in.Email)
	} else if pending == 0 {
		s.logOutcome(s.Notify.SendWelcome(ctx, in.Email, in.DisplayName), in.Email)
	}
	s.logOutcome(s.Notify.SubscribeSignupList(ctx, in.Email), in.Email)

	_ = s.indexAccount(ctx, acc)

	pub := acc.Public()
	return &pub, nil
}

// ProfileInput names the mutable profile fields.
type ProfileInput struct {
	Name      string
	AvatarURL string
}

// ProfileView is the restricted projection returned by UpdateProfile.
type ProfileView struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Slug        string `json:"slug"`
}

// UpdateProfile applies display name and avatar, reallocating the slug only
// when the name actually changed. The previous avatar asset is left in place;
// storage cleanup is not handled here.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*ProfileView, error) {
	if userID == "" {
		return nil, ErrBadData
	}
	acc, err := s.Accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	slug := acc.Slug
	if in.Name != acc.DisplayName {
		slug, err = s.Slugs.Allocate(ctx, in.Name)
		if err != nil {
			return nil, err
		}
	}

	upd := entity.ProfileUpdate{DisplayName: in.Name, AvatarURL: in.AvatarURL, Slug: slug}
	if err := s.Accounts.UpdateProfile(ctx, userID, upd); err != nil {
		return nil, err
	}

	acc.DisplayName, acc.AvatarURL, acc.Slug = in.Name, in.AvatarURL, slug
	_ = s.indexAccount(ctx, acc)

	return &ProfileView{DisplayName: in.Name, AvatarURL: in.AvatarURL, Slug: slug}, nil
}

// BillingView is the restricted projection returned by the billing
// operations.
type BillingView struct {
	Profile          *entity.BillingProfile `json:"billing_profile"`
	Method           *entity.PaymentMethod  `json:"payment_method"`
	HasPaymentMethod bool                   `json:"has_payment_method"`
}

// AttachBillingProfile creates a remote customer bound to the payment-method
// token and mirrors the customer plus its default method onto the account in
// one write. Gateway errors propagate unmodified with nothing persisted; a
// remote customer created before a failed local write is not compensated.
// Not idempotent: the caller owns retry policy.
func (s *Service) AttachBillingProfile(ctx context.Context, userID, token string) (*BillingView, error) {
	if userID == "" || token == "" {
		return nil, ErrBadData
	}
	acc, err := s.Accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	cust, err := s.Gateway.CreateCustomer(ctx, token, acc.Email, acc.ID)
	if err != nil {
		return nil, err
	}
	method, err := s.Gateway.RetrievePaymentMethod(ctx, cust.ID, cust.DefaultSourceID)
	if err != nil {
		return nil, err
	}

	profile := billingProfileFrom(cust)
	pm := paymentMethodFrom(method)
	upd := entity.BillingUpdate{Profile: profile, Method: pm, MarkPaymentMethod: true}
	if err := s.Accounts.UpdateBilling(ctx, userID, upd); err != nil {
		return nil, err
	}

	return &BillingView{Profile: &profile, Method: &pm, HasPaymentMethod: true}, nil
}

// RotatePaymentMethod supersedes the default payment method of the already
// attached remote customer. Attachment is a hard precondition; the previous
// method is replaced atomically from the record's point of view.
func (s *Service) RotatePaymentMethod(ctx context.Context, userID, token string) (*BillingView, error) {
	if userID == "" || token == "" {
		return nil, ErrBadData
	}
	acc, err := s.Accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if acc.BillingProfile == nil {
		return nil, ErrNoBillingProfile
	}

	method, err := s.Gateway.CreatePaymentMethod(ctx, acc.BillingProfile.ID, token)
	if err != nil {
		return nil, err
	}
	cust, err := s.Gateway.UpdateCustomerDefaultMethod(ctx, acc.BillingProfile.ID, method.ID)
	if err != nil {
		return nil, err
	}

	profile := billingProfileFrom(cust)
	pm := paymentMethodFrom(method)
	upd := entity.BillingUpdate{Profile: profile, Method: pm}
	if err := s.Accounts.UpdateBilling(ctx, userID, upd); err != nil {
		return nil, err
	}

	return &BillingView{Profile: &profile, Method: &pm, HasPaymentMethod: acc.HasPaymentMethod}, nil
}

// checkPermissionAndGetTeam is the single authorization guard: it resolves
// the team's member set and admits only members. Everything else, including
// a team that does not exist, answers ErrTeamNotFound.
func (s *Service) checkPermissionAndGetTeam(ctx context.Context, userID, teamID string) ([]string, error) {
	if userID == "" || teamID == "" {
		return nil, ErrBadData
	}
	ids, err := s.Teams.MemberIDs(ctx, teamID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	for _, id := range ids {
		if id == userID {
			return ids, nil
		}
	}
	return nil, ErrTeamNotFound
}

// GetTeamMembers returns the public projections of all members of the team,
// provided the requesting account is itself a member.
func (s *Service) GetTeamMembers(ctx context.Context, userID, teamID string) ([]entity.PublicAccount, error) {
	ids, err := s.checkPermissionAndGetTeam(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.Accounts.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]entity.PublicAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Public())
	}
	return out, nil
}

// TeamView is the team metadata projection returned by GetTeam.
type TeamView struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

// GetTeam returns the team's metadata and member count, gated by the same
// membership check as GetTeamMembers.
func (s *Service) GetTeam(ctx context.Context, userID, teamID string) (*TeamView, error) {
	ids, err := s.checkPermissionAndGetTeam(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}
	team, err := s.Teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &TeamView{ID: team.ID, Slug: team.Slug, Name: team.Name, MemberCount: len(ids)}, nil
}

// GetProfile returns the caller's own public projection.
func (s *Service) GetProfile(ctx context.Context, userID string) (*entity.PublicAccount, error) {
	if userID == "" {
		return nil, ErrBadData
	}
	acc, err := s.Accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	pub := acc.Public()
	return &pub, nil
}

func (s *Service) logOutcome(o Outcome, email string) {
	if o.Sent() || s.Logger == nil {
		return
	}
	s.Logger.WithError(o.Err).WithFields(logrus.Fields{
		"side_effect": o.Name,
		"email":       email,
	}).Warn("best-effort side effect failed")
}

func billingProfileFrom(c *billing.Customer) entity.BillingProfile {
	return entity.BillingProfile{
		ID:              c.ID,
		CreatedAt:       c.CreatedAt,
		Currency:        c.Currency,
		DefaultSourceID: c.DefaultSourceID,
		Description:     c.Description,
	}
}

func paymentMethodFrom(m *billing.Method) entity.PaymentMethod {
	return entity.PaymentMethod{
		ID:       m.ID,
		Brand:    m.Brand,
		Funding:  m.Funding,
		Country:  m.Country,
		Last4:    m.Last4,
		ExpMonth: m.ExpMonth,
		ExpYear:  m.ExpYear,
	}
}

func (s *Service) indexAccount(ctx context.Context, a *entity.Account) error {
	if s.ES == nil || s.ESAccountsIndex == "" {
		return nil
	}
	b, _ := json.Marshal(a.Public())
	req := esapi.IndexRequest{Index: s.ESAccountsIndex, DocumentID: a.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("account_id", a.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("account_id", a.ID).Warn("es index response error")
	}
	return nil
}

// SearchAccounts performs a multi_match search on display name, email, and
// slug, returning raw index documents (which hold only public fields).
func (s *Service) SearchAccounts(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESAccountsIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"display_name^2", "email", "slug"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESAccountsIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
