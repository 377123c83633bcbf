package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teamdeckhq/teamdeck/internal/container"
	handlers "github.com/teamdeckhq/teamdeck/internal/interface/http"
	"github.com/teamdeckhq/teamdeck/internal/interface/middleware"
	"github.com/teamdeckhq/teamdeck/pkg/helpers"
)

// BillingModule wires the payment profile routes. Tight per-user limits:
// processor calls are not idempotent, so accidental rapid retries are worth
// damping at the edge.
// Protected: POST /api/billing/payment-profile, POST /api/billing/payment-method
type BillingModule struct {
	Handler *handlers.BillingHandler
	JWT     *helpers.JWTManager
}

func NewBillingModule(h *handlers.BillingHandler, jwt *helpers.JWTManager) *BillingModule {
	return &BillingModule{Handler: h, JWT: jwt}
}

func (m *BillingModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/billing/payment-profile", m.Handler.Attach)
		auth.POST("/billing/payment-method", m.Handler.Rotate)
	}
}
