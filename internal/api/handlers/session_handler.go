package handlers

import (
	"net/http"

	"github.com/busterbike/ride-tracker/internal/api/dto"
	apperrors "github.com/busterbike/ride-tracker/pkg/errors"
	"github.com/busterbike/ride-tracker/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Login handles POST /v1/session/login
func (h *Handlers) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest("Invalid request payload", err), nil)
		return
	}

	ctx := c.Request.Context()
	if err := h.Account.Login(ctx, req.Username, req.Password); err != nil {
		h.respondError(c, err, apperrors.ErrUpstreamUnavailable)
		return
	}

	// a rider logging back in may already have a bike out
	s, err := h.Rides.FetchCurrentRide(ctx)
	if err != nil {
		h.Logger.Warn("Failed to load ride after login", logger.Err(err))
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Logged in",
		Data:    h.rideResponse(s, s != nil),
	})
}

// Logout handles POST /v1/session/logout
func (h *Handlers) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.Account.Logout(ctx); err != nil {
		h.Logger.Warn("Server logout failed, token dropped locally", logger.Err(err))
	}

	if _, err := h.Rides.FetchCurrentRide(ctx); err != nil {
		h.Logger.Warn("Failed to refresh ride after logout", logger.Err(err))
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}
