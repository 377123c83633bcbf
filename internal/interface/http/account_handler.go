package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/teamdeckhq/teamdeck/internal/application"
	"github.com/teamdeckhq/teamdeck/pkg/helpers"
	"github.com/teamdeckhq/teamdeck/pkg/response"
	"github.com/teamdeckhq/teamdeck/pkg/validation"
)

// AccountHandler serves the authenticated account surface: own profile,
// profile mutation, avatar upload, and account search.
type AccountHandler struct {
	Svc       *application.Service
	Logger    *logrus.Logger
	GCS       *storage.Client
	GCSBucket string
}

func NewAccountHandler(svc *application.Service, logger *logrus.Logger, gcs *storage.Client, bucket string) *AccountHandler {
	return &AccountHandler{Svc: svc, Logger: logger, GCS: gcs, GCSBucket: bucket}
}

type updateProfileRequest struct {
	Name      string `json:"name" binding:"required"`
	AvatarURL string `json:"avatar_url" binding:"omitempty,url"`
}

func (h *AccountHandler) Me(c *gin.Context) {
	uid := c.GetString("userID")
	pub, err := h.Svc.GetProfile(c.Request.Context(), uid)
	if err != nil {
		response.Fail(c, http.StatusNotFound, "account not found", nil)
		return
	}
	response.Success(c, http.StatusOK, pub, "profile", nil)
}

func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	uid := c.GetString("userID")
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	view, err := h.Svc.UpdateProfile(c.Request.Context(), uid, application.ProfileInput{Name: req.Name, AvatarURL: req.AvatarURL})
	if err != nil {
		if errors.Is(err, application.ErrAccountNotFound) {
			response.Fail(c, http.StatusNotFound, "account not found", nil)
			return
		}
		response.Fail(c, http.StatusBadRequest, "failed to update profile", err.Error())
		return
	}
	response.Success(c, http.StatusOK, view, "profile updated", nil)
}

// UploadAvatar stores the uploaded image in GCS and points the profile at
// it. The previous avatar object is not deleted.
func (h *AccountHandler) UploadAvatar(c *gin.Context) {
	uid := c.GetString("userID")
	if h.GCS == nil || h.GCSBucket == "" {
		response.Fail(c, http.StatusServiceUnavailable, "avatar storage not configured", nil)
		return
	}

	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "missing avatar file", nil)
		return
	}
	defer func() { _ = file.Close() }()

	ctx := c.Request.Context()
	ext := strings.ToLower(filepath.Ext(header.Filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", uid, uuid.NewString()+ext))
	url, err := helpers.UploadObject(ctx, h.GCS, h.GCSBucket, objectPath, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.Logger.WithError(err).WithField("account_id", uid).Error("avatar upload failed")
		response.Fail(c, http.StatusInternalServerError, "avatar upload failed", nil)
		return
	}

	pub, err := h.Svc.GetProfile(ctx, uid)
	if err != nil {
		response.Fail(c, http.StatusNotFound, "account not found", nil)
		return
	}
	view, err := h.Svc.UpdateProfile(ctx, uid, application.ProfileInput{Name: pub.DisplayName, AvatarURL: url})
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "failed to update profile", nil)
		return
	}
	response.Success(c, http.StatusOK, view, "avatar updated", nil)
}

func (h *AccountHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Fail(c, http.StatusBadRequest, "missing query", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.SearchAccounts(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Warn("account search failed")
		response.Fail(c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "results", map[string]any{"count": len(hits)})
}
