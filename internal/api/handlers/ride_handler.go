package handlers

import (
	"net/http"

	"github.com/busterbike/ride-tracker/internal/api/dto"
	"github.com/busterbike/ride-tracker/internal/domain/bike"
	"github.com/busterbike/ride-tracker/internal/domain/ride"
	"github.com/busterbike/ride-tracker/internal/service/notify"
	apperrors "github.com/busterbike/ride-tracker/pkg/errors"
	"github.com/gin-gonic/gin"
)

// GetRide handles GET /v1/ride
func (h *Handlers) GetRide(c *gin.Context) {
	s, ok := h.Rides.Current()
	c.JSON(http.StatusOK, h.rideResponse(s, ok))
}

// RefreshRide handles POST /v1/ride/refresh
func (h *Handlers) RefreshRide(c *gin.Context) {
	s, err := h.Rides.FetchCurrentRide(c.Request.Context())
	if err != nil {
		h.respondError(c, err, apperrors.ErrUpstreamUnavailable)
		return
	}
	c.JSON(http.StatusOK, h.rideResponse(s, s != nil))
}

// EndRide handles POST /v1/ride/end
func (h *Handlers) EndRide(c *gin.Context) {
	completion, err := h.Rides.EndCurrentRide(c.Request.Context())
	if err != nil {
		h.respondError(c, err, apperrors.ErrUpstreamUnavailable)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Ride ended",
		Data:    completion,
	})
}

// CycleEquipment handles POST /v1/ride/equipment/:capability/cycle
func (h *Handlers) CycleEquipment(c *gin.Context) {
	capability := bike.Capability(c.Param("capability"))
	if !capability.IsValid() {
		h.respondError(c, bike.ErrUnknownCapability, nil)
		return
	}

	equipment, err := h.Rides.CycleEquipment(capability)
	if err != nil {
		h.respondError(c, err, nil)
		return
	}

	value, _ := equipment.Get(capability)
	c.JSON(http.StatusOK, dto.EquipmentResponse{
		Capability: string(capability),
		Value:      value,
		Equipment:  equipment,
	})
}

// UpdateNotes handles PUT /v1/ride/notes
func (h *Handlers) UpdateNotes(c *gin.Context) {
	var req dto.NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest("Invalid request payload", err), nil)
		return
	}
	if err := h.Rides.SetNotes(req.Notes); err != nil {
		h.respondError(c, err, nil)
		return
	}
	s, ok := h.Rides.Current()
	c.JSON(http.StatusOK, h.rideResponse(s, ok))
}

// GetNotification handles GET /v1/ride/notification
func (h *Handlers) GetNotification(c *gin.Context) {
	s, ok := h.Rides.Current()
	if !ok {
		h.respondError(c, ride.ErrNoActiveRide, nil)
		return
	}
	c.JSON(http.StatusOK, notify.TrackingText(s, h.now()))
}

func (h *Handlers) rideResponse(s *ride.Session, active bool) dto.RideResponse {
	if !active || s == nil {
		return dto.RideResponse{Active: false}
	}
	n := notify.TrackingText(s, h.now())
	return dto.RideResponse{
		Active:         true,
		Session:        s,
		DrivenDistance: s.DrivenDistance(),
		Notification:   &n,
	}
}
