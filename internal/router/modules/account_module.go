package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teamdeckhq/teamdeck/internal/container"
	handlers "github.com/teamdeckhq/teamdeck/internal/interface/http"
	"github.com/teamdeckhq/teamdeck/internal/interface/middleware"
	"github.com/teamdeckhq/teamdeck/pkg/helpers"
)

// AccountModule wires the authenticated account routes.
// Protected: GET /api/me, PUT /api/profile, POST /api/profile/avatar,
// GET /api/accounts/search
type AccountModule struct {
	Handler *handlers.AccountHandler
	JWT     *helpers.JWTManager
}

func NewAccountModule(h *handlers.AccountHandler, jwt *helpers.JWTManager) *AccountModule {
	return &AccountModule{Handler: h, JWT: jwt}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(
		middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP()),
		middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.GET("/me", m.Handler.Me)
		auth.PUT("/profile", m.Handler.UpdateProfile)
		auth.POST("/profile/avatar", m.Handler.UploadAvatar)
		auth.GET("/accounts/search", m.Handler.Search)
	}
}
