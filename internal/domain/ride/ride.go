package ride

import (
	"errors"
	"fmt"
	"time"

	"github.com/busterbike/ride-tracker/internal/domain/bike"
	"github.com/google/uuid"
)

// Sample is one device position report
type Sample struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Mocked     bool      `json:"mocked"`
	ReceivedAt time.Time `json:"received_at"`
}

// Location returns the sampled position
func (s Sample) Location() bike.Location {
	return bike.Location{Latitude: s.Latitude, Longitude: s.Longitude}
}

// Session is the ride currently in progress on this device. Only the session
// store holds a live Session; everyone else works on snapshots.
type Session struct {
	ID              uuid.UUID `json:"id"`
	Bike            bike.Bike `json:"bike"`
	LastLatitude    float64   `json:"last_latitude"`
	LastLongitude   float64   `json:"last_longitude"`
	TotalDistance   float64   `json:"total_distance"`
	AcceptedSamples int       `json:"accepted_samples"`
	TrackingPaused  bool      `json:"tracking_paused"`
	RiderEdited     bool      `json:"rider_edited"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	// Version increases with every change the store makes; a snapshot with a
	// lower version than one already seen is stale.
	Version uint64 `json:"version"`
}

var (
	ErrNoActiveRide  = errors.New("no active ride")
	ErrInvalidSample = errors.New("invalid location sample")
)

// NewSession starts a session for a freshly reserved bike. Distance starts at
// zero and the last position is seeded from the bike's registered position.
func NewSession(b *bike.Bike, now time.Time) (*Session, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("cannot start ride: %w", err)
	}
	loc := b.Location()
	return &Session{
		ID:            uuid.New(),
		Bike:          b.Clone(),
		LastLatitude:  loc.Latitude,
		LastLongitude: loc.Longitude,
		StartedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Snapshot returns an independent copy of the session
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Bike = s.Bike.Clone()
	return &cp
}

// LastLocation returns the most recent accepted position
func (s *Session) LastLocation() bike.Location {
	return bike.Location{Latitude: s.LastLatitude, Longitude: s.LastLongitude}
}

// InUseSince returns when the bike was taken out, falling back to the
// moment this device started tracking
func (s *Session) InUseSince() time.Time {
	if s.Bike.LastUsedOn != nil && !s.Bike.LastUsedOn.IsZero() {
		return *s.Bike.LastUsedOn
	}
	return s.StartedAt
}

// Elapsed returns how long the ride has been going at now
func (s *Session) Elapsed(now time.Time) time.Duration {
	d := now.Sub(s.InUseSince())
	if d < 0 {
		return 0
	}
	return d
}

// DrivenDistance formats the accumulated distance the way the API expects it
func (s *Session) DrivenDistance() string {
	return FormatDistance(s.TotalDistance)
}

// FormatDistance renders kilometres with two decimals
func FormatDistance(km float64) string {
	return fmt.Sprintf("%.2f", km)
}
