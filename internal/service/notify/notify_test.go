package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/busterbike/ride-tracker/internal/domain/bike"
	"github.com/busterbike/ride-tracker/internal/domain/ride"
	"github.com/busterbike/ride-tracker/internal/service/reservation"
	"github.com/busterbike/ride-tracker/internal/service/session"
	"github.com/busterbike/ride-tracker/pkg/logger"
	"github.com/busterbike/ride-tracker/pkg/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHub struct {
	mu       sync.Mutex
	messages []websocket.Message
}

func (f *fakeHub) Broadcast(m websocket.Message) {
	f.mu.Lock()
	f.messages = append(f.messages, m)
	f.mu.Unlock()
}

func (f *fakeHub) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.messages))
	for i, m := range f.messages {
		out[i] = m.Type
	}
	return out
}

type fakeRides struct {
	s *ride.Session
}

func (f fakeRides) Current() (*ride.Session, bool) {
	return f.s, f.s != nil
}

func testSession(t *testing.T, start time.Time) *ride.Session {
	t.Helper()
	b := &bike.Bike{ID: "3", Name: "Buster 3"}
	b.SetLocation(52.0, 4.0)
	s, err := ride.NewSession(b, start)
	require.NoError(t, err)
	return s
}

// TestFormatElapsed tests the days:hours:minutes:seconds rendering
func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		name     string
		d        time.Duration
		expected string
	}{
		{"zero", 0, "0:0:0:0"},
		{"seconds only", 42 * time.Second, "0:0:0:42"},
		{"minutes and seconds", 5*time.Minute + 3*time.Second, "0:0:5:3"},
		{"hours", 2*time.Hour + 15*time.Minute, "0:2:15:0"},
		{"days", 26*time.Hour + time.Second, "1:2:0:1"},
		{"sub-second truncated", 1999 * time.Millisecond, "0:0:0:1"},
		{"negative clamps", -time.Minute, "0:0:0:0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatElapsed(tt.d))
		})
	}
}

// TestTrackingText tests the notification contents
func TestTrackingText(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s := testSession(t, start)
	s.TotalDistance = 3.14159

	n := TrackingText(s, start.Add(90*time.Second))

	assert.Equal(t, "Riding Buster 3", n.Title)
	assert.Equal(t, "3.14 km, 0:0:1:30", n.Body)
	assert.Equal(t, "0:0:1:30", n.Elapsed)

	usedOn := start.Add(-time.Hour)
	s.Bike.LastUsedOn = &usedOn
	s.TrackingPaused = true
	n = TrackingText(s, start)
	assert.Equal(t, "0:1:0:0", n.Elapsed, "Elapsed time should count from last_used_on")
	assert.Contains(t, n.Body, "location unavailable")
}

// TestPublisher_HandleSessionEvent tests the event to message mapping
func TestPublisher_HandleSessionEvent(t *testing.T) {
	hub := &fakeHub{}
	p := NewPublisher(hub, fakeRides{}, logger.NewNop(), time.Second)
	s := testSession(t, time.Now())

	p.HandleSessionEvent(session.Event{Type: session.EventStarted, Session: s})
	p.HandleSessionEvent(session.Event{Type: session.EventUpdated, Session: s})
	p.HandleSessionEvent(session.Event{Type: session.EventRefreshed, Session: s})
	p.HandleSessionEvent(session.Event{Type: session.EventEnded, Session: s, Completion: &session.Completion{Session: s}})
	p.HandleSessionEvent(session.Event{Type: session.EventCleared, Session: s})

	assert.Equal(t, []string{
		TypeRideStarted,
		TypeTrackingNotification,
		TypeRideUpdated,
		TypeRideUpdated,
		TypeRideEnded,
		TypeRideCleared,
	}, hub.types())
}

// TestPublisher_NoticesAndTrust tests notices and untrusted-location warnings
func TestPublisher_NoticesAndTrust(t *testing.T) {
	hub := &fakeHub{}
	p := NewPublisher(hub, fakeRides{}, logger.NewNop(), time.Second)

	p.Notify(reservation.Notice{Level: reservation.LevelSuccess, Text: "Bike 3 reserved!"})
	p.ReportUntrustedLocation(ride.Sample{Latitude: 1, Longitude: 2, Mocked: true})

	require.Len(t, hub.messages, 2)
	assert.Equal(t, TypeNotice, hub.messages[0].Type)
	assert.Equal(t, "Bike 3 reserved!", hub.messages[0].Data.(reservation.Notice).Text)
	assert.Equal(t, TypeLocationUntrusted, hub.messages[1].Type)
}

// TestPublisher_Run tests the periodic tracking notification
func TestPublisher_Run(t *testing.T) {
	hub := &fakeHub{}
	p := NewPublisher(hub, fakeRides{s: testSession(t, time.Now())}, logger.NewNop(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(hub.types()) >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	for _, typ := range hub.types() {
		assert.Equal(t, TypeTrackingNotification, typ)
	}
}

// TestPublisher_RunIdle tests that nothing is published without a ride
func TestPublisher_RunIdle(t *testing.T) {
	hub := &fakeHub{}
	p := NewPublisher(hub, fakeRides{}, logger.NewNop(), 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	assert.Empty(t, hub.types())
}

// TestPublisher_StaleUpdateDropped tests that an update older than one
// already published is not sent to clients
func TestPublisher_StaleUpdateDropped(t *testing.T) {
	hub := &fakeHub{}
	p := NewPublisher(hub, fakeRides{}, logger.NewNop(), time.Second)
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	older := testSession(t, start)
	older.Version = 4
	older.TotalDistance = 0.1
	newer := *older
	newer.Version = 5
	newer.TotalDistance = 0.2

	p.HandleSessionEvent(session.Event{Type: session.EventUpdated, Session: &newer})
	p.HandleSessionEvent(session.Event{Type: session.EventUpdated, Session: older})
	p.HandleSessionEvent(session.Event{Type: session.EventUpdated, Session: &newer})

	require.Len(t, hub.messages, 2)
	for _, m := range hub.messages {
		assert.Equal(t, uint64(5), m.Data.(*ride.Session).Version)
	}
}
