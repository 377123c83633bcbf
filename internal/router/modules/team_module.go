package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teamdeckhq/teamdeck/internal/container"
	handlers "github.com/teamdeckhq/teamdeck/internal/interface/http"
	"github.com/teamdeckhq/teamdeck/internal/interface/middleware"
	"github.com/teamdeckhq/teamdeck/pkg/helpers"
)

// TeamModule wires the membership-gated team routes.
// Protected: GET /api/teams/:id, GET /api/teams/:id/members
type TeamModule struct {
	Handler *handlers.TeamHandler
	JWT     *helpers.JWTManager
}

func NewTeamModule(h *handlers.TeamHandler, jwt *helpers.JWTManager) *TeamModule {
	return &TeamModule{Handler: h, JWT: jwt}
}

func (m *TeamModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	auth.GET("/teams/:id", m.Handler.Get)
	auth.GET("/teams/:id/members", m.Handler.Members)
}
