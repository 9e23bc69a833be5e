package notify

import (
	"context"
	"sync"
	"time"

	"github.com/busterbike/ride-tracker/internal/domain/ride"
	"github.com/busterbike/ride-tracker/internal/service/reservation"
	"github.com/busterbike/ride-tracker/internal/service/session"
	"github.com/busterbike/ride-tracker/pkg/logger"
	"github.com/busterbike/ride-tracker/pkg/websocket"
)

// Message types pushed to UI clients
const (
	TypeRideStarted          = "ride_started"
	TypeRideUpdated          = "ride_updated"
	TypeRideEnded            = "ride_ended"
	TypeRideCleared          = "ride_cleared"
	TypeLocationUntrusted    = "location_untrusted"
	TypeNotice               = "notice"
	TypeTrackingNotification = "tracking_notification"
)

const untrustedLocationText = "Your location appears to be simulated. Turn off mock locations to continue."

// Broadcaster delivers messages to connected clients
type Broadcaster interface {
	Broadcast(message websocket.Message)
}

// SessionReader exposes the active ride
type SessionReader interface {
	Current() (*ride.Session, bool)
}

// Publisher forwards ride activity to connected clients
type Publisher struct {
	hub      Broadcaster
	rides    SessionReader
	logger   *logger.Logger
	interval time.Duration
	now      func() time.Time

	mu          sync.Mutex
	lastVersion uint64
}

// NewPublisher creates a publisher. interval is how often the tracking
// notification is refreshed while a ride is active.
func NewPublisher(hub Broadcaster, rides SessionReader, log *logger.Logger, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Publisher{
		hub:      hub,
		rides:    rides,
		logger:   log,
		interval: interval,
		now:      time.Now,
	}
}

// HandleSessionEvent is a session store listener
func (p *Publisher) HandleSessionEvent(evt session.Event) {
	switch evt.Type {
	case session.EventStarted:
		p.stale(evt.Session)
		p.hub.Broadcast(websocket.Message{Type: TypeRideStarted, Data: evt.Session})
		p.publishTracking(evt.Session)
	case session.EventRefreshed, session.EventUpdated:
		if p.stale(evt.Session) {
			return
		}
		p.hub.Broadcast(websocket.Message{Type: TypeRideUpdated, Data: evt.Session})
	case session.EventEnded:
		p.hub.Broadcast(websocket.Message{Type: TypeRideEnded, Data: evt.Completion})
	case session.EventCleared:
		p.hub.Broadcast(websocket.Message{Type: TypeRideCleared, Data: evt.Session})
	}
}

// stale reports whether a newer snapshot has already been published. Listeners
// run on the goroutine that made the change, so updates can arrive out of order.
func (p *Publisher) stale(s *ride.Session) bool {
	if s == nil || s.Version == 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.Version < p.lastVersion {
		return true
	}
	p.lastVersion = s.Version
	return false
}

// ReportUntrustedLocation warns the rider that a mocked position was rejected
func (p *Publisher) ReportUntrustedLocation(sample ride.Sample) {
	p.logger.Warn("Untrusted location reported",
		logger.Float64("latitude", sample.Latitude),
		logger.Float64("longitude", sample.Longitude),
	)
	p.hub.Broadcast(websocket.Message{
		Type: TypeLocationUntrusted,
		Data: reservation.Notice{Level: reservation.LevelError, Text: untrustedLocationText},
	})
}

// Notify shows a short message to the rider
func (p *Publisher) Notify(n reservation.Notice) {
	p.hub.Broadcast(websocket.Message{Type: TypeNotice, Data: n})
}

// Run refreshes the tracking notification until ctx is cancelled
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s, ok := p.rides.Current(); ok {
				p.publishTracking(s)
			}
		}
	}
}

func (p *Publisher) publishTracking(s *ride.Session) {
	if s == nil {
		return
	}
	p.hub.Broadcast(websocket.Message{
		Type: TypeTrackingNotification,
		Data: TrackingText(s, p.now()),
	})
}
