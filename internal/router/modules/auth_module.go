package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teamdeckhq/teamdeck/internal/container"
	handlers "github.com/teamdeckhq/teamdeck/internal/interface/http"
	"github.com/teamdeckhq/teamdeck/internal/interface/middleware"
	"github.com/teamdeckhq/teamdeck/pkg/helpers"
)

// AuthModule wires the federated sign-in routes.
// Public: GET /api/auth/google, GET /api/auth/google/callback, POST /api/refresh
// Protected: POST /api/logout
type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	signInLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP(), nil)
	refreshLimiter := middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.GET("/auth/google", signInLimiter, m.Handler.GoogleRedirect)
	rg.GET("/auth/google/callback", signInLimiter, m.Handler.GoogleCallback)
	rg.POST("/refresh", refreshLimiter, m.Handler.Refresh)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.POST("/logout", m.Handler.Logout)
}
