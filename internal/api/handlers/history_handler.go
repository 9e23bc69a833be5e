package handlers

import (
	"net/http"
	"strconv"

	"github.com/busterbike/ride-tracker/internal/api/dto"
	apperrors "github.com/busterbike/ride-tracker/pkg/errors"
	"github.com/gin-gonic/gin"
)

// ListHistory handles GET /v1/rides/history
func (h *Handlers) ListHistory(c *gin.Context) {
	if h.Journal == nil {
		h.respondError(c, apperrors.ErrHistoryDisabled, nil)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondError(c, apperrors.BadRequest("limit must be a non-negative integer", err), nil)
			return
		}
		limit = n
	}

	records, err := h.Journal.List(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err, apperrors.Internal("Failed to read ride history", nil))
		return
	}
	c.JSON(http.StatusOK, dto.HistoryResponse{Rides: records})
}
