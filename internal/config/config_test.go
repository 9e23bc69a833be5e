package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults tests the built-in defaults
func TestLoad_Defaults(t *testing.T) {
	cfg := fromEnv()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 0.1, cfg.Tracking.MinStepKM, "Noise threshold should default to 100 m")
	assert.Equal(t, 0.05, cfg.Tracking.ReserveMaxDistanceKM, "Reservation radius should default to 50 m")
	assert.Equal(t, LocationModePush, cfg.Tracking.LocationMode)
	assert.Equal(t, 5*time.Second, cfg.Inventory.PollInterval)
	assert.Equal(t, "Token", cfg.API.AuthScheme)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.NewRelic.Enabled)
	assert.Empty(t, cfg.CORS.AllowedOrigins, "No web origin should be trusted by default")
	assert.NoError(t, cfg.Validate())
}

// TestLoad_FromEnv tests environment overrides
func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://bikes.example.com/")
	t.Setenv("TRACKING_MIN_STEP_KM", "0")
	t.Setenv("TRACKING_LOCATION_MODE", "POLL")
	t.Setenv("TRACKING_POLL_INTERVAL", "2s")
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:8081, http://10.0.2.2:8081")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://bikes.example.com", cfg.API.BaseURL, "Trailing slash should be trimmed")
	assert.Equal(t, 0.0, cfg.Tracking.MinStepKM)
	assert.Equal(t, LocationModePoll, cfg.Tracking.LocationMode)
	assert.Equal(t, 2*time.Second, cfg.Tracking.PollInterval)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, []string{"http://localhost:8081", "http://10.0.2.2:8081"}, cfg.CORS.AllowedOrigins)
}

// TestConfig_Validate tests rejection of unusable settings
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing port", func(c *Config) { c.Server.Port = "" }},
		{"missing api url", func(c *Config) { c.API.BaseURL = "" }},
		{"negative step", func(c *Config) { c.Tracking.MinStepKM = -0.1 }},
		{"zero reserve radius", func(c *Config) { c.Tracking.ReserveMaxDistanceKM = 0 }},
		{"unknown location mode", func(c *Config) { c.Tracking.LocationMode = "gps" }},
		{"db enabled without host", func(c *Config) { c.Database.Enabled = true; c.Database.Host = "" }},
		{"redis enabled without host", func(c *Config) { c.Redis.Enabled = true; c.Redis.Host = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fromEnv()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestGetEnvHelpers tests fallback on malformed values
func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_BOOL", "maybe")
	t.Setenv("TEST_FLOAT", "1.5")

	assert.Equal(t, 7, getEnvAsInt("TEST_INT", 7))
	assert.True(t, getEnvAsBool("TEST_BOOL", true))
	assert.Equal(t, 1.5, getEnvAsFloat64("TEST_FLOAT", 0))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, []string{"a"}, getEnvAsSlice("TEST_MISSING", []string{"a"}))
}
