package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/teamdeckhq/teamdeck/internal/application"
	"github.com/teamdeckhq/teamdeck/internal/domain/entity"
	"github.com/teamdeckhq/teamdeck/pkg/helpers"
	"github.com/teamdeckhq/teamdeck/pkg/response"
)

const sessionTTL = 24 * time.Hour

// AuthHandler drives the federated sign-in flow: consent redirect, callback
// exchange, session issue, logout.
type AuthHandler struct {
	Svc     *application.Service
	OAuth   *helpers.OAuthManager
	JWT     *helpers.JWTManager
	Redis   *redis.Client
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.Service, oauth *helpers.OAuthManager, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		Svc:     svc,
		OAuth:   oauth,
		JWT:     jwt,
		Redis:   rdb,
		Logger:  logger,
		Cookies: helpers.NewCookie(cookieDomain, cookieSecure),
	}
}

// GoogleRedirect sends the browser to the provider's consent screen.
func (h *AuthHandler) GoogleRedirect(c *gin.Context) {
	state, err := h.OAuth.StateToken()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "failed to start sign-in", nil)
		return
	}
	h.Cookies.SetState(c, state, 10*time.Minute)
	c.Redirect(http.StatusTemporaryRedirect, h.OAuth.AuthURL(state))
}

// GoogleCallback exchanges the code, resolves the provider identity, and
// signs the account in (creating it on first sign-in).
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	state, err := c.Cookie("oauth_state")
	if err != nil || state == "" || state != c.Query("state") {
		response.Fail(c, http.StatusUnauthorized, "invalid oauth state", nil)
		return
	}
	h.Cookies.ClearState(c)

	code := c.Query("code")
	if code == "" {
		response.Fail(c, http.StatusBadRequest, "missing authorization code", nil)
		return
	}

	ctx := c.Request.Context()
	tok, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		h.Logger.WithError(err).Warn("oauth code exchange failed")
		response.Fail(c, http.StatusUnauthorized, "code exchange failed", nil)
		return
	}
	id, err := h.OAuth.FetchIdentity(ctx, tok)
	if err != nil || id.ID == "" {
		h.Logger.WithError(err).Warn("identity fetch failed")
		response.Fail(c, http.StatusUnauthorized, "identity fetch failed", nil)
		return
	}

	pub, err := h.Svc.SignInOrSignUp(ctx, application.SignInInput{
		ExternalIdentityID: id.ID,
		Email:              id.Email,
		AccessToken:        tok.AccessToken,
		RefreshToken:       tok.RefreshToken,
		DisplayName:        id.Name,
		AvatarURL:          id.Picture,
	})
	if err != nil {
		h.Logger.WithError(err).WithField("external_id", id.ID).Error("sign-in failed")
		response.Fail(c, http.StatusInternalServerError, "sign-in failed", nil)
		return
	}

	if err := h.issueSession(c, pub); err != nil {
		response.Fail(c, http.StatusInternalServerError, "session issue failed", nil)
		return
	}
	response.Success(c, http.StatusOK, pub, "signed in", nil)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	uid := c.GetString("userID")
	if uid != "" && h.Redis != nil {
		_ = h.Redis.Del(c.Request.Context(), helpers.SessionKey(uid)).Err()
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"logged_out": true}, "logged out", nil)
}

// Refresh rotates the session id and token pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie("refresh_token")
	if err != nil || refresh == "" {
		response.Fail(c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	claims, err := h.JWT.ParseRefreshToken(refresh)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}

	ctx := c.Request.Context()
	key := helpers.SessionKey(claims.UserID)
	data, err := h.Redis.HGetAll(ctx, key).Result()
	if err != nil || len(data) == 0 || data["sid"] != claims.SessionID {
		response.Fail(c, http.StatusUnauthorized, "session not found", nil)
		return
	}

	pub, err := h.Svc.GetProfile(ctx, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, "account not found", nil)
		return
	}
	if err := h.issueSession(c, pub); err != nil {
		response.Fail(c, http.StatusInternalServerError, "session issue failed", nil)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"refreshed": true}, "token refreshed", nil)
}

// issueSession writes the redis session hash and the cookie pair.
func (h *AuthHandler) issueSession(c *gin.Context, pub *entity.PublicAccount) error {
	sid := uuid.NewString()
	access, aexp, err := h.JWT.GenerateAccessToken(pub.ID, sid)
	if err != nil {
		return err
	}
	refresh, rexp, err := h.JWT.GenerateRefreshToken(pub.ID, sid)
	if err != nil {
		return err
	}

	if h.Redis != nil {
		ctx := c.Request.Context()
		key := helpers.SessionKey(pub.ID)
		pipe := h.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"user_id":      pub.ID,
			"email":        pub.Email,
			"display_name": pub.DisplayName,
			"avatar_url":   pub.AvatarURL,
			"sid":          sid,
			"created_at":   time.Now().UTC().Format(time.RFC3339Nano),
		})
		pipe.Expire(ctx, key, sessionTTL)
		if _, err := pipe.Exec(ctx); err != nil && h.Logger != nil {
			h.Logger.WithError(err).WithField("key", key).Warn("redis pipeline failed")
		}
	}

	h.Cookies.SetPair(c, access, aexp, refresh, rexp)
	return nil
}
