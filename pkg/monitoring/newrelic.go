package monitoring

import (
	"fmt"
	"os"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Config holds New Relic configuration
type Config struct {
	LicenseKey string
	AppName    string
	Enabled    bool
	LogLevel   string
}

// NewRelicApp wraps the New Relic application
type NewRelicApp struct {
	*newrelic.Application
	enabled bool
}

// New creates a new New Relic application
func New(cfg Config) (*NewRelicApp, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		// Return disabled app
		return &NewRelicApp{nil, false}, nil
	}

	opts := []newrelic.ConfigOption{
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigAppLogForwardingEnabled(true),
		newrelic.ConfigDistributedTracerEnabled(true),
	}
	if cfg.LogLevel == "debug" {
		opts = append(opts, newrelic.ConfigDebugLogger(os.Stdout))
	}

	app, err := newrelic.NewApplication(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	return &NewRelicApp{app, true}, nil
}

// Disabled returns an app whose recording calls are all no-ops
func Disabled() *NewRelicApp {
	return &NewRelicApp{nil, false}
}

// RecordCustomEvent records a custom event
func (nr *NewRelicApp) RecordCustomEvent(eventType string, params map[string]interface{}) {
	if nr == nil || !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomEvent(eventType, params)
}

// RecordCustomMetric records a custom metric
func (nr *NewRelicApp) RecordCustomMetric(name string, value float64) {
	if nr == nil || !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomMetric(name, value)
}

// Shutdown gracefully shuts down the New Relic application
func (nr *NewRelicApp) Shutdown(timeout time.Duration) {
	if nr == nil || !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.Shutdown(timeout)
}

// Custom metric helpers

// RecordSampleAccepted records a location sample that moved the ride forward
func (nr *NewRelicApp) RecordSampleAccepted(stepKM float64) {
	nr.RecordCustomMetric("custom/tracker/sample_accepted", stepKM)
}

// RecordSampleRejected records a dropped location sample
func (nr *NewRelicApp) RecordSampleRejected(reason string) {
	nr.RecordCustomMetric(fmt.Sprintf("custom/tracker/sample_rejected/%s", reason), 1)
}

// RecordLocationUpdate records a raw device location report
func (nr *NewRelicApp) RecordLocationUpdate() {
	nr.RecordCustomMetric("custom/tracker/location_update", 1)
}

// RecordReservationAttempt records the outcome of a reservation attempt
func (nr *NewRelicApp) RecordReservationAttempt(outcome string) {
	nr.RecordCustomMetric(fmt.Sprintf("custom/tracker/reservation/%s", outcome), 1)
}

// RecordRideStarted records a ride picked up from the server
func (nr *NewRelicApp) RecordRideStarted(sessionID, bikeID string) {
	nr.RecordCustomEvent("RideStarted", map[string]interface{}{
		"session_id": sessionID,
		"bike_id":    bikeID,
		"timestamp":  time.Now().Unix(),
	})
}

// RecordRideCompleted records a ride accepted by the server
func (nr *NewRelicApp) RecordRideCompleted(sessionID, bikeID string, distanceKM float64, duration time.Duration) {
	nr.RecordCustomEvent("RideCompleted", map[string]interface{}{
		"session_id":       sessionID,
		"bike_id":          bikeID,
		"distance":         distanceKM,
		"duration_seconds": int(duration.Seconds()),
	})
}

// IsEnabled returns whether New Relic is enabled
func (nr *NewRelicApp) IsEnabled() bool {
	return nr != nil && nr.enabled
}
