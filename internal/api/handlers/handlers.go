package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/busterbike/ride-tracker/internal/api/dto"
	"github.com/busterbike/ride-tracker/internal/device"
	"github.com/busterbike/ride-tracker/internal/domain/bike"
	"github.com/busterbike/ride-tracker/internal/domain/ride"
	"github.com/busterbike/ride-tracker/internal/repository/history"
	"github.com/busterbike/ride-tracker/internal/service/reservation"
	"github.com/busterbike/ride-tracker/internal/service/session"
	"github.com/busterbike/ride-tracker/pkg/bikeapi"
	apperrors "github.com/busterbike/ride-tracker/pkg/errors"
	"github.com/busterbike/ride-tracker/pkg/logger"
	"github.com/busterbike/ride-tracker/pkg/websocket"
	"github.com/gin-gonic/gin"
)

// RideService is the session store as seen by the API
type RideService interface {
	Current() (*ride.Session, bool)
	FetchCurrentRide(ctx context.Context) (*ride.Session, error)
	EndCurrentRide(ctx context.Context) (*session.Completion, error)
	CycleEquipment(c bike.Capability) (bike.Equipment, error)
	SetNotes(notes string) error
}

// LocationFeed accepts pushed device locations
type LocationFeed interface {
	Push(sample ride.Sample)
	ReportError(err error)
}

// Inventory serves the cached bike list
type Inventory interface {
	Bikes(ctx context.Context) ([]bike.Bike, error)
	Bike(ctx context.Context, id bike.ID) (*bike.Bike, error)
}

// Reserver attempts bike reservations
type Reserver interface {
	AttemptReserve(ctx context.Context, b bike.Bike) (*reservation.Outcome, error)
}

// Journal lists completed rides
type Journal interface {
	List(ctx context.Context, limit int) ([]history.Record, error)
}

// Account manages the login against the bike-sharing server
type Account interface {
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
}

// LocationRecorder counts device location reports
type LocationRecorder interface {
	RecordLocationUpdate()
}

// Dependencies are the services the handlers delegate to. Journal may be nil
// when ride history is disabled.
type Dependencies struct {
	Rides     RideService
	Feed      LocationFeed
	Inventory Inventory
	Reserver  Reserver
	Journal   Journal
	Account   Account
	Metrics   LocationRecorder
	Hub       *websocket.Hub
	Logger    *logger.Logger

	WSReadBufferSize  int
	WSWriteBufferSize int
	// AllowedOrigins are the web origins that may open a WebSocket besides
	// the tracker's own host. Empty allows none.
	AllowedOrigins []string
}

// Handlers holds all handler dependencies
type Handlers struct {
	Dependencies
	now func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies) *Handlers {
	if deps.WSReadBufferSize <= 0 {
		deps.WSReadBufferSize = 1024
	}
	if deps.WSWriteBufferSize <= 0 {
		deps.WSWriteBufferSize = 1024
	}
	return &Handlers{Dependencies: deps, now: time.Now}
}

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	_, active := h.Rides.Current()
	connections := 0
	if h.Hub != nil {
		connections = h.Hub.GetActiveConnections()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"ride_active": active,
		"connections": connections,
	})
}

// respondError writes err as an ErrorResponse. Errors the tracker does not
// recognise are reported as fallback.
func (h *Handlers) respondError(c *gin.Context, err error, fallback *apperrors.AppError) {
	appErr := translate(err, fallback)
	if appErr.Status >= http.StatusInternalServerError {
		h.Logger.Warn("Request failed",
			logger.String("path", c.FullPath()),
			logger.Int("status", appErr.Status),
			logger.Err(err),
		)
	}
	c.JSON(appErr.Status, dto.ErrorResponse{Code: appErr.Code, Message: appErr.Message})
}

func translate(err error, fallback *apperrors.AppError) *apperrors.AppError {
	switch {
	case apperrors.IsAppError(err):
		return apperrors.GetAppError(err)
	case errors.Is(err, ride.ErrNoActiveRide):
		return apperrors.ErrNoActiveRide
	case errors.Is(err, bike.ErrUnknownCapability):
		return apperrors.ErrUnknownCapability
	case errors.Is(err, bike.ErrBikeNotFound):
		return apperrors.ErrBikeNotFound
	case errors.Is(err, ride.ErrInvalidSample), errors.Is(err, bike.ErrInvalidLocation):
		return apperrors.ErrInvalidSample
	case errors.Is(err, bikeapi.ErrUnauthenticated), errors.Is(err, bikeapi.ErrMissingToken):
		return apperrors.ErrNotAuthenticated
	case errors.Is(err, device.ErrNoFix), errors.Is(err, device.ErrStaleFix):
		return apperrors.ErrLocationUnavailable
	}
	if fallback == nil {
		fallback = apperrors.Internal("An unexpected error occurred", nil)
	}
	return apperrors.WithCause(fallback, err)
}
