package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/teamdeckhq/teamdeck/internal/domain/entity"
	repo "github.com/teamdeckhq/teamdeck/internal/domain/repository"
	"github.com/teamdeckhq/teamdeck/pkg/billing"
	"github.com/teamdeckhq/teamdeck/pkg/slugger"
)

type stubAccounts struct {
	byID       map[string]*entity.Account
	nextID     int
	createErr  error
	tokenCalls []entity.TokenUpdate
}

func newStubAccounts() *stubAccounts {
	return &stubAccounts{byID: map[string]*entity.Account{}}
}

func (s *stubAccounts) Create(_ context.Context, a *entity.Account) error {
	if s.createErr != nil {
		return s.createErr
	}
	for _, ex := range s.byID {
		if ex.ExternalIdentityID == a.ExternalIdentityID || ex.Email == a.Email || ex.Slug == a.Slug {
			return errors.New("unique violation")
		}
	}
	s.nextID++
	a.ID = fmt.Sprintf("acc-%d", s.nextID)
	cp := *a
	s.byID[a.ID] = &cp
	return nil
}

func (s *stubAccounts) GetByID(_ context.Context, id string) (*entity.Account, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *stubAccounts) GetByExternalIdentityID(_ context.Context, externalID string) (*entity.Account, error) {
	for _, a := range s.byID {
		if a.ExternalIdentityID == externalID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *stubAccounts) GetByIDs(_ context.Context, ids []string) ([]*entity.Account, error) {
	var out []*entity.Account
	for _, id := range ids {
		if a, ok := s.byID[id]; ok {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *stubAccounts) UpdateTokens(_ context.Context, id string, upd entity.TokenUpdate) error {
	a, ok := s.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	s.tokenCalls = append(s.tokenCalls, upd)
	if upd.AccessToken != nil {
		a.AccessToken = *upd.AccessToken
	}
	if upd.RefreshToken != nil {
		a.RefreshToken = *upd.RefreshToken
	}
	return nil
}

func (s *stubAccounts) UpdateProfile(_ context.Context, id string, upd entity.ProfileUpdate) error {
	a, ok := s.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	a.DisplayName, a.AvatarURL, a.Slug = upd.DisplayName, upd.AvatarURL, upd.Slug
	return nil
}

func (s *stubAccounts) UpdateBilling(_ context.Context, id string, upd entity.BillingUpdate) error {
	a, ok := s.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	profile, method := upd.Profile, upd.Method
	a.BillingProfile = &profile
	a.PaymentMethod = &method
	if upd.MarkPaymentMethod {
		a.HasPaymentMethod = true
	}
	return nil
}

func (s *stubAccounts) SlugExists(_ context.Context, slug string) (bool, error) {
	for _, a := range s.byID {
		if a.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

type stubTeams struct {
	members map[string][]string
}

func (s *stubTeams) GetByID(_ context.Context, id string) (*entity.Team, error) {
	if _, ok := s.members[id]; !ok {
		return nil, repo.ErrNotFound
	}
	return &entity.Team{ID: id, Slug: id, Name: "Team " + id}, nil
}

func (s *stubTeams) MemberIDs(_ context.Context, teamID string) ([]string, error) {
	ids, ok := s.members[teamID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return ids, nil
}

type stubInvites struct {
	pending map[string]int
	err     error
}

func (s *stubInvites) CountPendingByEmail(_ context.Context, email string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.pending[email], nil
}

type stubNotifier struct {
	welcomes   []string
	subscribes []string
	sendErr    error
	subErr     error
}

func (s *stubNotifier) SendWelcome(_ context.Context, email, _ string) Outcome {
	s.welcomes = append(s.welcomes, email)
	return Outcome{Name: "welcome email", Err: s.sendErr}
}

func (s *stubNotifier) SubscribeSignupList(_ context.Context, email string) Outcome {
	s.subscribes = append(s.subscribes, email)
	return Outcome{Name: "signup list subscribe", Err: s.subErr}
}

type stubGateway struct {
	createCustomerErr error
	retrieveErr       error
	createMethodErr   error
	updateDefaultErr  error

	customerSeq int
	methodSeq   int
}

func (g *stubGateway) CreateCustomer(_ context.Context, token, email, accountID string) (*billing.Customer, error) {
	if g.createCustomerErr != nil {
		return nil, g.createCustomerErr
	}
	g.customerSeq++
	return &billing.Customer{
		ID:              fmt.Sprintf("cus_%d", g.customerSeq),
		CreatedAt:       time.Unix(1700000000, 0).UTC(),
		Currency:        "usd",
		DefaultSourceID: token,
		Description:     "teamdeck account " + accountID,
	}, nil
}

func (g *stubGateway) RetrievePaymentMethod(_ context.Context, customerID, methodID string) (*billing.Method, error) {
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	return &billing.Method{ID: methodID, Brand: "visa", Funding: "credit", Country: "US", Last4: "4242", ExpMonth: 12, ExpYear: 2030}, nil
}

func (g *stubGateway) CreatePaymentMethod(_ context.Context, customerID, token string) (*billing.Method, error) {
	if g.createMethodErr != nil {
		return nil, g.createMethodErr
	}
	g.methodSeq++
	return &billing.Method{ID: fmt.Sprintf("pm_new_%d", g.methodSeq), Brand: "mastercard", Funding: "debit", Country: "US", Last4: "4444", ExpMonth: 1, ExpYear: 2031}, nil
}

func (g *stubGateway) UpdateCustomerDefaultMethod(_ context.Context, customerID, methodID string) (*billing.Customer, error) {
	if g.updateDefaultErr != nil {
		return nil, g.updateDefaultErr
	}
	return &billing.Customer{
		ID:              customerID,
		CreatedAt:       time.Unix(1700000000, 0).UTC(),
		Currency:        "usd",
		DefaultSourceID: methodID,
	}, nil
}

type fixture struct {
	svc      *Service
	accounts *stubAccounts
	teams    *stubTeams
	invites  *stubInvites
	notify   *stubNotifier
	gateway  *stubGateway
}

func newFixture() *fixture {
	accounts := newStubAccounts()
	teams := &stubTeams{members: map[string][]string{}}
	invites := &stubInvites{pending: map[string]int{}}
	notify := &stubNotifier{}
	gateway := &stubGateway{}
	svc := NewService(accounts, teams, invites, slugger.New(accounts), gateway, notify, nil, nil, "")
	return &fixture{svc: svc, accounts: accounts, teams: teams, invites: invites, notify: notify, gateway: gateway}
}

func signIn(externalID, email, name string) SignInInput {
	return SignInInput{ExternalIdentityID: externalID, Email: email, DisplayName: name}
}

func TestSignUpCreatesAccountOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.SignInOrSignUp(ctx, signIn("g-1", "a@x.com", "Ann"))
	if err != nil {
		t.Fatalf("first sign-in: %v", err)
	}
	second, err := f.svc.SignInOrSignUp(ctx, signIn("g-1", "a@x.com", "Ann"))
	if err != nil {
		t.Fatalf("second sign-in: %v", err)
	}
	if len(f.accounts.byID) != 1 {
		t.Fatalf("accounts = %d, want 1", len(f.accounts.byID))
	}
	if *first != *second {
		t.Fatalf("projections differ: %+v vs %+v", first, second)
	}
	if first.Slug != "ann" {
		t.Fatalf("slug = %q, want %q", first.Slug, "ann")
	}
	if first.DefaultTeamSlug != "" {
		t.Fatalf("default team slug = %q, want empty", first.DefaultTeamSlug)
	}
	if !first.IdentityConnected {
		t.Fatal("identity_connected = false, want true")
	}
}

func TestSignUpMissingExternalID(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.SignInOrSignUp(context.Background(), signIn("", "a@x.com", "Ann")); !errors.Is(err, ErrBadData) {
		t.Fatalf("err = %v, want ErrBadData", err)
	}
}

func TestSignInPartialTokenMerge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	in := signIn("g-1", "a@x.com", "Ann")
	in.AccessToken, in.RefreshToken = "at-0", "rt-0"
	if _, err := f.svc.SignInOrSignUp(ctx, in); err != nil {
		t.Fatalf("sign-up: %v", err)
	}

	again := signIn("g-1", "a@x.com", "Ann")
	again.AccessToken = "at-1"
	if _, err := f.svc.SignInOrSignUp(ctx, again); err != nil {
		t.Fatalf("sign-in: %v", err)
	}

	acc, err := f.accounts.GetByExternalIdentityID(ctx, "g-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if acc.AccessToken != "at-1" {
		t.Fatalf("access token = %q, want %q", acc.AccessToken, "at-1")
	}
	if acc.RefreshToken != "rt-0" {
		t.Fatalf("refresh token = %q, want %q (must not be overwritten)", acc.RefreshToken, "rt-0")
	}
	if len(f.accounts.tokenCalls) != 1 || f.accounts.tokenCalls[0].RefreshToken != nil {
		t.Fatalf("token update should carry only the access token: %+v", f.accounts.tokenCalls)
	}
}

func TestSignInWithoutTokensIsPureRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.SignInOrSignUp(ctx, signIn("g-1", "a@x.com", "Ann")); err != nil {
		t.Fatalf("sign-up: %v", err)
	}
	if _, err := f.svc.SignInOrSignUp(ctx, signIn("g-1", "a@x.com", "Ann")); err != nil {
		t.Fatalf("sign-in: %v", err)
	}
	if len(f.accounts.tokenCalls) != 0 {
		t.Fatalf("token updates = %d, want 0", len(f.accounts.tokenCalls))
	}
}

func TestSignUpPendingInvitationSkipsWelcome(t *testing.T) {
	f := newFixture()
	f.invites.pending["a@x.com"] = 1

	if _, err := f.svc.SignInOrSignUp(context.Background(), signIn("g-1", "a@x.com", "Ann")); err != nil {
		t.Fatalf("sign-up: %v", err)
	}
	if len(f.notify.welcomes) != 0 {
		t.Fatalf("welcome emails = %v, want none", f.notify.welcomes)
	}
	if len(f.notify.subscribes) != 1 || f.notify.subscribes[0] != "a@x.com" {
		t.Fatalf("subscribes = %v, want [a@x.com]", f.notify.subscribes)
	}
}

func TestSignUpSideEffectFailuresDoNotFail(t *testing.T) {
	f := newFixture()
	f.invites.err = errors.New("invitation store down")
	f.notify.subErr = errors.New("list service down")

	pub, err := f.svc.SignInOrSignUp(context.Background(), signIn("g-1", "a@x.com", "Ann"))
	if err != nil {
		t.Fatalf("sign-up must succeed despite side-effect failures: %v", err)
	}
	if pub.Email != "a@x.com" {
		t.Fatalf("email = %q", pub.Email)
	}
	if len(f.notify.welcomes) != 0 {
		t.Fatal("welcome must be skipped when the invitation check fails")
	}
	if len(f.notify.subscribes) != 1 {
		t.Fatal("subscribe must still be attempted")
	}
}

func TestDistinctSlugsForSameName(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.svc.SignInOrSignUp(ctx, signIn("g-1", "a@x.com", "Ann"))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := f.svc.SignInOrSignUp(ctx, signIn("g-2", "b@x.com", "Ann"))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a.Slug == b.Slug {
		t.Fatalf("both accounts got slug %q", a.Slug)
	}
	if a.Slug != "ann" || b.Slug != "ann-2" {
		t.Fatalf("slugs = %q, %q", a.Slug, b.Slug)
	}
}

func TestUpdateProfileSlugStability(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pub, err := f.svc.SignInOrSignUp(ctx, signIn("g-1", "a@x.com", "Ann"))
	if err != nil {
		t.Fatalf("sign-up: %v", err)
	}

	same, err := f.svc.UpdateProfile(ctx, pub.ID, ProfileInput{Name: "Ann", AvatarURL: "https://img/new.png"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if same.Slug != pub.Slug {
		t.Fatalf("slug changed to %q on unchanged name", same.Slug)
	}
	if same.AvatarURL != "https://img/new.png" {
		t.Fatalf("avatar = %q", same.AvatarURL)
	}

	renamed, err := f.svc.UpdateProfile(ctx, pub.ID, ProfileInput{Name: "Annette", AvatarURL: "https://img/new.png"})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Slug == pub.Slug {
		t.Fatal("slug must change when the name changes")
	}
	if renamed.Slug != "annette" {
		t.Fatalf("slug = %q, want %q", renamed.Slug, "annette")
	}
}

func TestUpdateProfileUnknownAccount(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.UpdateProfile(context.Background(), "missing", ProfileInput{Name: "X"}); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestAttachBillingProfile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pub, err := f.svc.SignInOrSignUp(ctx, signIn("g-1", "a@x.com", "Ann"))
	if err != nil {
		t.Fatalf("sign-up: %v", err)
	}

	before, _ := f.accounts.GetByID(ctx, pub.ID)
	if before.HasPaymentMethod || before.PaymentMethod != nil || before.BillingProfile != nil {
		t.Fatal("billing fields must be absent before attachment")
	}

	view, err := f.svc.AttachBillingProfile(ctx, pub.ID, "pm_tok")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if !view.HasPaymentMethod {
		t.Fatal("has_payment_method = false after successful attach")
	}
	if view.Method.ID != view.Profile.DefaultSourceID {
		t.Fatalf("method id %q != default source %q", view.Method.ID, view.Profile.DefaultSourceID)
	}

	after, _ := f.accounts.GetByID(ctx, pub.ID)
	if !after.HasPaymentMethod || after.PaymentMethod == nil || after.BillingProfile == nil {
		t.Fatal("billing mirrors not persisted")
	}
	if after.PaymentMethod.ID != "pm_tok" {
		t.Fatalf("persisted method id = %q, want %q", after.PaymentMethod.ID, "pm_tok")
	}
}

func TestAttachGatewayErrorLeavesNoPartialWrite(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pub, err := f.svc.SignInOrSignUp(ctx, signIn("g-1", "a@x.com", "Ann"))
	if err != nil {
		t.Fatalf("sign-up: %v", err)
	}

	boom := errors.New("processor unavailable")
	f.gateway.retrieveErr = boom
	if _, err := f.svc.AttachBillingProfile(ctx, pub.ID, "pm_tok"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want gateway error unmodified", err)
	}

	acc, _ := f.accounts.GetByID(ctx, pub.ID)
	if acc.HasPaymentMethod || acc.BillingProfile != nil || acc.PaymentMethod != nil {
		t.Fatal("no billing state may be persisted on gateway failure")
	}
}

func TestRotatePaymentMethod(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pub, err := f.svc.SignInOrSignUp(ctx, signIn("g-1", "a@x.com", "Ann"))
	if err != nil {
		t.Fatalf("sign-up: %v", err)
	}
	if _, err := f.svc.AttachBillingProfile(ctx, pub.ID, "pm_tok"); err != nil {
		t.Fatalf("attach: %v", err)
	}

	view, err := f.svc.RotatePaymentMethod(ctx, pub.ID, "pm_tok_2")
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if view.Method.ID != "pm_new_1" {
		t.Fatalf("method id = %q, want the newly created method", view.Method.ID)
	}
	if view.Profile.DefaultSourceID != view.Method.ID {
		t.Fatalf("default source %q != new method %q", view.Profile.DefaultSourceID, view.Method.ID)
	}
	if !view.HasPaymentMethod {
		t.Fatal("has_payment_method must stay true across rotation")
	}

	acc, _ := f.accounts.GetByID(ctx, pub.ID)
	if acc.PaymentMethod.ID != "pm_new_1" || acc.BillingProfile.DefaultSourceID != "pm_new_1" {
		t.Fatalf("persisted mirrors disagree: method %q, default source %q", acc.PaymentMethod.ID, acc.BillingProfile.DefaultSourceID)
	}
	if !acc.HasPaymentMethod {
		t.Fatal("has_payment_method flipped during rotation")
	}
}

func TestRotateBeforeAttachFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pub, err := f.svc.SignInOrSignUp(ctx, signIn("g-1", "a@x.com", "Ann"))
	if err != nil {
		t.Fatalf("sign-up: %v", err)
	}
	if _, err := f.svc.RotatePaymentMethod(ctx, pub.ID, "pm_tok"); !errors.Is(err, ErrNoBillingProfile) {
		t.Fatalf("err = %v, want ErrNoBillingProfile", err)
	}
}

func TestGetTeamMembersAuthorization(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ann, _ := f.svc.SignInOrSignUp(ctx, signIn("g-1", "a@x.com", "Ann"))
	bob, _ := f.svc.SignInOrSignUp(ctx, signIn("g-2", "b@x.com", "Bob"))
	eve, _ := f.svc.SignInOrSignUp(ctx, signIn("g-3", "e@x.com", "Eve"))
	f.teams.members["team-1"] = []string{ann.ID, bob.ID}

	cases := []struct {
		name    string
		userID  string
		teamID  string
		wantErr error
	}{
		{"missing user id", "", "team-1", ErrBadData},
		{"missing team id", ann.ID, "", ErrBadData},
		{"unknown team", ann.ID, "team-9", ErrTeamNotFound},
		{"non-member", eve.ID, "team-1", ErrTeamNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.GetTeamMembers(ctx, tc.userID, tc.teamID); !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}

	members, err := f.svc.GetTeamMembers(ctx, ann.ID, "team-1")
	if err != nil {
		t.Fatalf("member lookup: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}
	got := map[string]bool{}
	for _, m := range members {
		got[m.ID] = true
	}
	if !got[ann.ID] || !got[bob.ID] {
		t.Fatalf("members = %+v, want Ann and Bob", members)
	}
}

func TestGetTeamGating(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ann, _ := f.svc.SignInOrSignUp(ctx, signIn("g-1", "a@x.com", "Ann"))
	eve, _ := f.svc.SignInOrSignUp(ctx, signIn("g-2", "e@x.com", "Eve"))
	f.teams.members["team-1"] = []string{ann.ID}

	if _, err := f.svc.GetTeam(ctx, eve.ID, "team-1"); !errors.Is(err, ErrTeamNotFound) {
		t.Fatalf("err = %v, want ErrTeamNotFound for non-member", err)
	}

	team, err := f.svc.GetTeam(ctx, ann.ID, "team-1")
	if err != nil {
		t.Fatalf("team lookup: %v", err)
	}
	if team.ID != "team-1" || team.Name != "Team team-1" || team.MemberCount != 1 {
		t.Fatalf("team = %+v", team)
	}
}
