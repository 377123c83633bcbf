package helpers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const userinfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"

// Identity is the verified profile the identity provider reports for a
// signed-in user.
type Identity struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// OAuthManager drives the Google sign-in flow: state token, consent URL,
// code exchange, and userinfo fetch. Token verification semantics beyond the
// exchange live with the provider.
type OAuthManager struct {
	conf *oauth2.Config
}

func NewOAuthManager(clientID, clientSecret, redirectURL string) *OAuthManager {
	return &OAuthManager{conf: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
	}}
}

// StateToken mints a random value binding the redirect to the browser that
// initiated it.
func (o *OAuthManager) StateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (o *OAuthManager) AuthURL(state string) string {
	return o.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (o *OAuthManager) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return o.conf.Exchange(ctx, code)
}

// FetchIdentity resolves the provider's profile for the exchanged token.
func (o *OAuthManager) FetchIdentity(ctx context.Context, tok *oauth2.Token) (*Identity, error) {
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := o.conf.Client(c, tok).Get(userinfoEndpoint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, err
	}
	return &id, nil
}
