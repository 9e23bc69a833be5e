package handlers

import (
	"net/http"

	"github.com/busterbike/ride-tracker/internal/api/dto"
	"github.com/busterbike/ride-tracker/internal/domain/bike"
	apperrors "github.com/busterbike/ride-tracker/pkg/errors"
	"github.com/busterbike/ride-tracker/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ListBikes handles GET /v1/bikes
func (h *Handlers) ListBikes(c *gin.Context) {
	bikes, err := h.Inventory.Bikes(c.Request.Context())
	if err != nil {
		h.respondError(c, err, apperrors.Internal("Failed to read bike inventory", nil))
		return
	}
	c.JSON(http.StatusOK, dto.BikesResponse{Bikes: bikes})
}

// GetBike handles GET /v1/bikes/:id
func (h *Handlers) GetBike(c *gin.Context) {
	b, err := h.Inventory.Bike(c.Request.Context(), bike.ID(c.Param("id")))
	if err != nil {
		h.respondError(c, err, apperrors.Internal("Failed to read bike inventory", nil))
		return
	}
	c.JSON(http.StatusOK, b)
}

// ReserveBike handles POST /v1/bikes/:id/reserve
func (h *Handlers) ReserveBike(c *gin.Context) {
	id := bike.ID(c.Param("id"))
	b, err := h.Inventory.Bike(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, apperrors.Internal("Failed to read bike inventory", nil))
		return
	}

	outcome, err := h.Reserver.AttemptReserve(c.Request.Context(), *b)
	if err != nil {
		h.respondError(c, err, apperrors.ErrUpstreamUnavailable)
		return
	}

	h.Logger.Info("Reservation attempt finished",
		logger.String("bike_id", id.String()),
		logger.String("outcome", outcome.Outcome),
	)
	c.JSON(http.StatusOK, outcome)
}
