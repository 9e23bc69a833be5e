package routes

import (
	"time"

	"github.com/busterbike/ride-tracker/internal/api/handlers"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// CORSConfig lists what the rider UI may call
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, nrApp *newrelic.Application, corsCfg CORSConfig) {
	// Add New Relic middleware if enabled
	if nrApp != nil {
		r.Use(nrgin.Middleware(nrApp))
	}

	r.Use(cors.New(corsConfig(corsCfg)))

	// Health check
	r.GET("/health", h.Health)

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// WebSocket connection (ui clients and the device location bridge)
		v1.GET("/ws", h.HandleWebSocket)

		// Active ride
		current := v1.Group("/ride")
		{
			current.GET("", h.GetRide)
			current.POST("/refresh", h.RefreshRide)
			current.POST("/end", h.EndRide)
			current.POST("/equipment/:capability/cycle", h.CycleEquipment)
			current.PUT("/notes", h.UpdateNotes)
			current.GET("/notification", h.GetNotification)
		}

		// Device location
		location := v1.Group("/location")
		{
			location.POST("", h.PushLocation)
			location.POST("/error", h.ReportLocationError)
		}

		// Bike inventory and reservations
		bikes := v1.Group("/bikes")
		{
			bikes.GET("", h.ListBikes)
			bikes.GET("/:id", h.GetBike)
			bikes.POST("/:id/reserve", h.ReserveBike)
		}

		// Completed rides
		v1.GET("/rides/history", h.ListHistory)

		// Login against the bike-sharing server
		account := v1.Group("/session")
		{
			account.POST("/login", h.Login)
			account.POST("/logout", h.Logout)
		}
	}
}

func corsConfig(cfg CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods: cfg.AllowedMethods,
		AllowHeaders: cfg.AllowedHeaders,
		MaxAge:       12 * time.Hour,
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(cfg.AllowedOrigins) == 0 {
		// requests without an Origin header (the native app) are unaffected;
		// any cross-origin browser request is refused with 403
		c.AllowOriginFunc = func(string) bool { return false }
		return c
	}
	c.AllowOrigins = cfg.AllowedOrigins
	return c
}
