package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew_Disabled tests that a missing license key yields a no-op app
func TestNew_Disabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"disabled", Config{Enabled: false, LicenseKey: "abc"}},
		{"no license key", Config{Enabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := New(tt.cfg)
			require.NoError(t, err)
			assert.False(t, app.IsEnabled())
			assert.Nil(t, app.Application)
		})
	}
}

// TestNewRelicApp_DisabledHelpers tests that every recorder is safe when disabled
func TestNewRelicApp_DisabledHelpers(t *testing.T) {
	app := Disabled()

	assert.NotPanics(t, func() {
		app.RecordSampleAccepted(0.2)
		app.RecordSampleRejected("mocked")
		app.RecordLocationUpdate()
		app.RecordReservationAttempt("too_far")
		app.RecordRideStarted("s", "b")
		app.RecordRideCompleted("s", "b", 1.5, time.Minute)
		app.Shutdown(time.Second)
	})

	var nilApp *NewRelicApp
	assert.False(t, nilApp.IsEnabled())
	assert.NotPanics(t, func() { nilApp.RecordLocationUpdate() })
}
