package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestNew tests logger construction for each output
func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"json to stdout", Config{Level: "info", Format: "json", Output: "stdout"}},
		{"console to stderr", Config{Level: "debug", Format: "console", Output: "stderr"}},
		{"unknown level falls back to info", Config{Level: "loud", Format: "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

// TestNew_FileOutput tests that a path output appends to that file
func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.log")
	log, err := New(Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	log.Info("Ride started", String("bike_id", "7"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Ride started"`)
	assert.Contains(t, string(data), `"bike_id":"7"`)
}

// TestNew_BadFileOutput tests that an unwritable output is an error
func TestNew_BadFileOutput(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "tracker.log")})
	assert.Error(t, err)
}

// TestLogger_ForRide tests that ride loggers carry the ride identity
func TestLogger_ForRide(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewFromCore(core)

	log.ForRide("session-1", "7").Info("Ride ended", String("driven_distance", "0.11"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "session-1", fields["session_id"])
	assert.Equal(t, "7", fields["bike_id"])
	assert.Equal(t, "0.11", fields["driven_distance"])
}

// TestFields tests the field helpers
func TestFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewFromCore(core).Named("sampler")

	log.Debug("Sample accepted",
		Float64("step_km", 0.11),
		Int("accepted", 2),
		Int64("latency_ms", 12),
		Bool("mocked", false),
		Duration("elapsed", 90*time.Second),
		Err(errors.New("boom")),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "sampler", entries[0].LoggerName)

	fields := entries[0].ContextMap()
	assert.Equal(t, 0.11, fields["step_km"])
	assert.Equal(t, int64(2), fields["accepted"])
	assert.Equal(t, int64(12), fields["latency_ms"])
	assert.Equal(t, false, fields["mocked"])
	assert.Equal(t, 90.0, fields["elapsed_seconds"])
	assert.Equal(t, "boom", fields["error"])
}
