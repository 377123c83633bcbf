package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/teamdeckhq/teamdeck/internal/application"
	"github.com/teamdeckhq/teamdeck/pkg/response"
)

// TeamHandler exposes the membership-gated team surface.
type TeamHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewTeamHandler(svc *application.Service, logger *logrus.Logger) *TeamHandler {
	return &TeamHandler{Svc: svc, Logger: logger}
}

// Get returns the team's metadata and member count, restricted to members.
func (h *TeamHandler) Get(c *gin.Context) {
	uid := c.GetString("userID")
	teamID := c.Param("id")

	team, err := h.Svc.GetTeam(c.Request.Context(), uid, teamID)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrBadData):
			response.Fail(c, http.StatusBadRequest, "bad data", nil)
		case errors.Is(err, application.ErrTeamNotFound):
			response.Fail(c, http.StatusNotFound, "team not found", nil)
		default:
			h.Logger.WithError(err).WithField("team_id", teamID).Error("team lookup failed")
			response.Fail(c, http.StatusInternalServerError, "team lookup failed", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, team, "team", nil)
}

// Members lists the public projections of a team's members. Only members of
// the team may call it; absent teams and forbidden teams answer identically.
func (h *TeamHandler) Members(c *gin.Context) {
	uid := c.GetString("userID")
	teamID := c.Param("id")

	members, err := h.Svc.GetTeamMembers(c.Request.Context(), uid, teamID)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrBadData):
			response.Fail(c, http.StatusBadRequest, "bad data", nil)
		case errors.Is(err, application.ErrTeamNotFound):
			response.Fail(c, http.StatusNotFound, "team not found", nil)
		default:
			h.Logger.WithError(err).WithField("team_id", teamID).Error("team member lookup failed")
			response.Fail(c, http.StatusInternalServerError, "team member lookup failed", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, members, "team members", map[string]any{"count": len(members)})
}
