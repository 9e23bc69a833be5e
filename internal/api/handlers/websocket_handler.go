package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/busterbike/ride-tracker/pkg/logger"
	"github.com/busterbike/ride-tracker/pkg/websocket"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

// HandleWebSocket handles GET /v1/ws
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	userType := c.DefaultQuery("user_type", websocket.UserTypeUI)
	if userType != websocket.UserTypeUI && userType != websocket.UserTypeDevice {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_type must be ui or device"})
		return
	}

	upgrader := gorilla.Upgrader{
		ReadBufferSize:  h.WSReadBufferSize,
		WriteBufferSize: h.WSWriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Error("Failed to upgrade to WebSocket", logger.Err(err))
		return
	}

	client := websocket.NewClient(h.Hub, conn, userType, h.Logger)
	h.Hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// checkOrigin admits clients that send no Origin (the native app), pages
// served by the tracker itself and the configured origins
func (h *Handlers) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range h.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	h.Logger.Warn("Rejected WebSocket from foreign origin", logger.String("origin", origin))
	return false
}
