package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/busterbike/ride-tracker/internal/api/dto"
	"github.com/busterbike/ride-tracker/internal/domain/ride"
	apperrors "github.com/busterbike/ride-tracker/pkg/errors"
	"github.com/busterbike/ride-tracker/pkg/logger"
	"github.com/busterbike/ride-tracker/pkg/websocket"
	"github.com/gin-gonic/gin"
)

// Device message types
const (
	MessageLocation      = "location"
	MessageLocationError = "location_error"
)

// PushLocation handles POST /v1/location
func (h *Handlers) PushLocation(c *gin.Context) {
	var req dto.LocationSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest("Invalid request payload", err), nil)
		return
	}

	if err := h.pushSample(req); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.Status(http.StatusAccepted)
}

// ReportLocationError handles POST /v1/location/error
func (h *Handlers) ReportLocationError(c *gin.Context) {
	var req dto.LocationErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest("Invalid request payload", err), nil)
		return
	}

	h.Feed.ReportError(errors.New(req.Message))
	c.Status(http.StatusAccepted)
}

// HandleDeviceMessage receives location reports sent over the WebSocket by
// device clients
func (h *Handlers) HandleDeviceMessage(client *websocket.Client, msg websocket.ClientMessage) {
	if client.UserType != websocket.UserTypeDevice {
		h.Logger.Warn("Ignoring message from non-device client",
			logger.String("type", msg.Type),
			logger.String("client_id", client.ID),
		)
		return
	}

	switch msg.Type {
	case MessageLocation:
		var req dto.LocationSampleRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.Latitude == nil || req.Longitude == nil {
			client.SendMessage(websocket.Message{Type: "error", Data: apperrors.ErrInvalidSample})
			return
		}
		if err := h.pushSample(req); err != nil {
			client.SendMessage(websocket.Message{Type: "error", Data: translate(err, nil)})
		}

	case MessageLocationError:
		var req dto.LocationErrorRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.Message == "" {
			req.Message = "location source failed"
		}
		h.Feed.ReportError(errors.New(req.Message))

	default:
		h.Logger.Warn("Unknown device message type",
			logger.String("type", msg.Type),
			logger.String("client_id", client.ID),
		)
	}
}

// pushSample hands a device fix to the feed. Mocked fixes are forwarded
// whatever their coordinates so the sampler can flag them as untrusted.
func (h *Handlers) pushSample(req dto.LocationSampleRequest) error {
	sample := req.Sample()
	if !sample.Mocked && !sample.Location().Valid() {
		return ride.ErrInvalidSample
	}
	if h.Metrics != nil {
		h.Metrics.RecordLocationUpdate()
	}
	h.Feed.Push(sample)
	return nil
}
