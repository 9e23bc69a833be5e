package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/busterbike/ride-tracker/internal/domain/bike"
	"github.com/busterbike/ride-tracker/internal/domain/ride"
	"github.com/busterbike/ride-tracker/internal/service/distance"
	"github.com/busterbike/ride-tracker/pkg/bikeapi"
	"github.com/busterbike/ride-tracker/pkg/logger"
)

// RideAPI is the part of the bike-sharing API the store depends on
type RideAPI interface {
	GetReservedBike(ctx context.Context) (*bike.Bike, error)
	EndRide(ctx context.Context, req bikeapi.EndRideRequest) error
}

// Locator returns the device's current position
type Locator interface {
	CurrentPosition(ctx context.Context) (ride.Sample, error)
}

// EventType describes a session lifecycle transition
type EventType string

const (
	EventStarted   EventType = "started"
	EventRefreshed EventType = "refreshed"
	EventUpdated   EventType = "updated"
	EventEnded     EventType = "ended"
	EventCleared   EventType = "cleared"
)

// Event is delivered to listeners after a transition. Session is a snapshot
// of the state after the transition, or of the submitted state for ended
// rides. Listeners may see concurrent updates out of order; Session.Version
// tells them apart.
type Event struct {
	Type       EventType
	Session    *ride.Session
	Completion *Completion
}

// Listener receives session events
type Listener func(Event)

// Completion is the record of a ride accepted by the server
type Completion struct {
	Session        *ride.Session `json:"session"`
	DrivenDistance string        `json:"driven_distance"`
	FinalLocation  bike.Location `json:"final_location"`
	EndedAt        time.Time     `json:"ended_at"`
}

// Store is the single owner of the active ride. Every mutation happens under
// mu; fetch and end additionally hold opMu for the duration of their network
// call so they cannot interleave.
type Store struct {
	api         RideAPI
	locator     Locator
	accumulator *distance.Accumulator
	logger      *logger.Logger
	now         func() time.Time

	opMu      sync.Mutex
	mu        sync.Mutex
	current   *ride.Session
	version   uint64
	listeners []Listener
}

// NewStore creates a new session store
func NewStore(api RideAPI, locator Locator, accumulator *distance.Accumulator, log *logger.Logger) *Store {
	return &Store{
		api:         api,
		locator:     locator,
		accumulator: accumulator,
		logger:      log,
		now:         time.Now,
	}
}

// Subscribe registers a listener for session events
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Current returns a snapshot of the active ride
func (s *Store) Current() (*ride.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, false
	}
	return s.current.Snapshot(), true
}

// Active reports whether a ride is in progress
func (s *Store) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// FetchCurrentRide asks the server which bike the rider has reserved.
// Unauthenticated or no reservation clears the session without error. A
// transport failure leaves the session as it was.
func (s *Store) FetchCurrentRide(ctx context.Context) (*ride.Session, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	reserved, err := s.api.GetReservedBike(ctx)
	if err != nil {
		if errors.Is(err, bikeapi.ErrUnauthenticated) || errors.Is(err, bikeapi.ErrNoReservation) {
			s.logger.Info("No reserved bike", logger.String("reason", err.Error()))
			s.clear()
			return nil, nil
		}
		s.logger.Warn("Failed to fetch current ride", logger.Err(err))
		return nil, fmt.Errorf("failed to fetch current ride: %w", err)
	}

	now := s.now()

	s.mu.Lock()
	prev := s.current
	var (
		next *ride.Session
		evt  EventType
	)
	if prev != nil && prev.Bike.ID == reserved.ID {
		next = refreshed(prev, reserved)
		evt = EventRefreshed
	} else {
		next, err = ride.NewSession(reserved, now)
		if err != nil {
			s.mu.Unlock()
			s.logger.Error("Server returned an unusable reservation", logger.Err(err))
			return nil, err
		}
		evt = EventStarted
	}
	s.current = next
	s.touch(now)
	snap := next.Snapshot()
	s.mu.Unlock()

	if evt == EventStarted {
		s.logger.ForRide(snap.ID.String(), snap.Bike.ID.String()).Info("Ride started",
			logger.String("bike_name", snap.Bike.Name),
		)
	}
	s.emit(Event{Type: evt, Session: snap})
	return snap, nil
}

// refreshed replaces the server-owned bike metadata while keeping the
// progress accumulated on this device and any edits the rider made
func refreshed(prev *ride.Session, reserved *bike.Bike) *ride.Session {
	next := prev.Snapshot()
	b := reserved.Clone()
	if prev.RiderEdited {
		b.Capabilities = prev.Bike.Capabilities
		b.Notes = prev.Bike.Notes
	}
	next.Bike = b
	return next
}

// EndCurrentRide submits the ride to the server. The session is cleared only
// when the server accepts it; on failure it is left exactly as it was.
func (s *Store) EndCurrentRide(ctx context.Context) (*Completion, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, ride.ErrNoActiveRide
	}
	snap := s.current.Snapshot()
	s.mu.Unlock()

	final := s.finalLocation(ctx, snap)

	payload := snap.Bike.Clone()
	payload.SetLocation(final.Latitude, final.Longitude)
	req := bikeapi.EndRideRequest{
		Bike:           payload,
		DrivenDistance: snap.DrivenDistance(),
	}

	if err := s.api.EndRide(ctx, req); err != nil {
		s.logger.Warn("Failed to end ride, keeping session for retry",
			logger.String("session_id", snap.ID.String()),
			logger.Err(err),
		)
		return nil, fmt.Errorf("failed to end ride: %w", err)
	}

	now := s.now()

	// The completion describes exactly what the server accepted. Samples
	// applied while the request was in flight are discarded with the session.
	s.mu.Lock()
	if s.current != nil && s.current.ID == snap.ID {
		s.current = nil
	}
	s.mu.Unlock()

	completion := &Completion{
		Session:        snap,
		DrivenDistance: req.DrivenDistance,
		FinalLocation:  final,
		EndedAt:        now,
	}

	s.logger.ForRide(snap.ID.String(), snap.Bike.ID.String()).Info("Ride ended",
		logger.String("driven_distance", req.DrivenDistance),
	)
	s.emit(Event{Type: EventEnded, Session: snap, Completion: completion})
	return completion, nil
}

// finalLocation takes one last device fix, falling back to the last accepted
// position when the device has none or reports a mocked one
func (s *Store) finalLocation(ctx context.Context, snap *ride.Session) bike.Location {
	fallback := snap.LastLocation()
	if s.locator == nil {
		return fallback
	}
	sample, err := s.locator.CurrentPosition(ctx)
	if err != nil {
		s.logger.Warn("No final position, using last accepted one", logger.Err(err))
		return fallback
	}
	if sample.Mocked || !sample.Location().Valid() {
		s.logger.Warn("Final position not trusted, using last accepted one",
			logger.Bool("mocked", sample.Mocked),
		)
		return fallback
	}
	return sample.Location()
}

// ApplySample feeds one validated sample to the distance accumulator
func (s *Store) ApplySample(sample ride.Sample) (distance.Step, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return distance.Step{}, ride.ErrNoActiveRide
	}
	step := s.accumulator.Apply(s.current, sample)
	resumed := s.current.TrackingPaused
	s.current.TrackingPaused = false
	var snap *ride.Session
	if step.Applied || resumed {
		s.touch(s.now())
		snap = s.current.Snapshot()
	}
	s.mu.Unlock()

	if snap != nil {
		s.emit(Event{Type: EventUpdated, Session: snap})
	}
	return step, nil
}

// SetTrackingPaused flags that the location source is currently failing
func (s *Store) SetTrackingPaused(paused bool) {
	s.mu.Lock()
	if s.current == nil || s.current.TrackingPaused == paused {
		s.mu.Unlock()
		return
	}
	s.current.TrackingPaused = paused
	s.touch(s.now())
	snap := s.current.Snapshot()
	s.mu.Unlock()

	s.emit(Event{Type: EventUpdated, Session: snap})
}

// CycleEquipment advances the rider's rating of one capability
func (s *Store) CycleEquipment(c bike.Capability) (bike.Equipment, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return bike.Equipment{}, ride.ErrNoActiveRide
	}
	if _, err := s.current.Bike.Capabilities.Cycle(c); err != nil {
		s.mu.Unlock()
		return bike.Equipment{}, err
	}
	s.current.RiderEdited = true
	s.touch(s.now())
	snap := s.current.Snapshot()
	s.mu.Unlock()

	s.emit(Event{Type: EventUpdated, Session: snap})
	return snap.Bike.Capabilities, nil
}

// SetNotes replaces the rider's free-text notes about the bike
func (s *Store) SetNotes(notes string) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return ride.ErrNoActiveRide
	}
	s.current.Bike.Notes = strings.TrimSpace(notes)
	s.current.RiderEdited = true
	s.touch(s.now())
	snap := s.current.Snapshot()
	s.mu.Unlock()

	s.emit(Event{Type: EventUpdated, Session: snap})
	return nil
}

// touch stamps the active session after a change. Callers hold mu.
func (s *Store) touch(now time.Time) {
	s.version++
	s.current.Version = s.version
	s.current.UpdatedAt = now
}

func (s *Store) clear() {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()

	if prev != nil {
		s.logger.Info("Ride no longer reserved on server",
			logger.String("session_id", prev.ID.String()),
		)
		s.emit(Event{Type: EventCleared, Session: prev.Snapshot()})
	}
}

func (s *Store) emit(evt Event) {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(evt)
	}
}
