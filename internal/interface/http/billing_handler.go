package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/teamdeckhq/teamdeck/internal/application"
	"github.com/teamdeckhq/teamdeck/pkg/response"
	"github.com/teamdeckhq/teamdeck/pkg/validation"
)

// BillingHandler exposes payment profile attachment and rotation.
type BillingHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewBillingHandler(svc *application.Service, logger *logrus.Logger) *BillingHandler {
	return &BillingHandler{Svc: svc, Logger: logger}
}

type paymentTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// Attach creates the remote customer for the caller and mirrors its billing
// state. Not retried here: processor calls are not idempotent.
func (h *BillingHandler) Attach(c *gin.Context) {
	uid := c.GetString("userID")
	var req paymentTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	view, err := h.Svc.AttachBillingProfile(c.Request.Context(), uid, req.Token)
	if err != nil {
		h.failBilling(c, uid, "payment profile attachment failed", err)
		return
	}
	response.Success(c, http.StatusOK, view, "payment profile attached", nil)
}

// Rotate supersedes the default payment method of the attached customer.
func (h *BillingHandler) Rotate(c *gin.Context) {
	uid := c.GetString("userID")
	var req paymentTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	view, err := h.Svc.RotatePaymentMethod(c.Request.Context(), uid, req.Token)
	if err != nil {
		h.failBilling(c, uid, "payment method rotation failed", err)
		return
	}
	response.Success(c, http.StatusOK, view, "payment method rotated", nil)
}

func (h *BillingHandler) failBilling(c *gin.Context, uid, msg string, err error) {
	switch {
	case errors.Is(err, application.ErrBadData):
		response.Fail(c, http.StatusBadRequest, "bad data", nil)
	case errors.Is(err, application.ErrAccountNotFound):
		response.Fail(c, http.StatusNotFound, "account not found", nil)
	case errors.Is(err, application.ErrNoBillingProfile):
		response.Fail(c, http.StatusConflict, "no payment profile attached", nil)
	default:
		h.Logger.WithError(err).WithField("account_id", uid).Error(msg)
		response.Fail(c, http.StatusBadGateway, msg, err.Error())
	}
}
