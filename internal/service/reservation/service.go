package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/busterbike/ride-tracker/internal/domain/bike"
	"github.com/busterbike/ride-tracker/internal/domain/ride"
	"github.com/busterbike/ride-tracker/internal/service/distance"
	"github.com/busterbike/ride-tracker/pkg/bikeapi"
	"github.com/busterbike/ride-tracker/pkg/logger"
)

// DefaultMaxDistanceKM is how close the rider must stand to a bike to reserve it
const DefaultMaxDistanceKM = 0.05

// Outcome values
const (
	OutcomeReserved  = "reserved"
	OutcomeTooFar    = "too_far"
	OutcomeUntrusted = "untrusted_location"
	OutcomeRejected  = "rejected"
)

// Notice levels
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// BikeAPI reserves bikes on the server
type BikeAPI interface {
	ReserveBike(ctx context.Context, id bike.ID) error
}

// Locator returns the device's current position
type Locator interface {
	CurrentPosition(ctx context.Context) (ride.Sample, error)
}

// RideRefresher loads the ride once the server has accepted a reservation
type RideRefresher interface {
	FetchCurrentRide(ctx context.Context) (*ride.Session, error)
}

// TrustReporter is told when the device delivers a mocked location
type TrustReporter interface {
	ReportUntrustedLocation(sample ride.Sample)
}

// Notifier shows a non-blocking message to the rider
type Notifier interface {
	Notify(n Notice)
}

// Recorder receives reservation metrics
type Recorder interface {
	RecordReservationAttempt(outcome string)
}

// Config holds reservation configuration
type Config struct {
	MaxDistanceKM float64
}

// Notice is a short user-facing message
type Notice struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Outcome is the result of a reservation attempt
type Outcome struct {
	Outcome    string        `json:"outcome"`
	Reserved   bool          `json:"reserved"`
	DistanceKM float64       `json:"distance_km"`
	Notice     Notice        `json:"notice"`
	Session    *ride.Session `json:"session,omitempty"`
}

// Service performs reservation attempts
type Service struct {
	api       BikeAPI
	locator   Locator
	rides     RideRefresher
	reporter  TrustReporter
	notifier  Notifier
	recorder  Recorder
	logger    *logger.Logger
	maxDistKM float64
}

// Option configures optional collaborators
type Option func(*Service)

// WithTrustReporter sets the untrusted-location side channel
func WithTrustReporter(r TrustReporter) Option {
	return func(s *Service) { s.reporter = r }
}

// WithNotifier sets where notices are pushed
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// NewService creates a new reservation service
func NewService(api BikeAPI, locator Locator, rides RideRefresher, log *logger.Logger, cfg Config, opts ...Option) *Service {
	maxDist := cfg.MaxDistanceKM
	if maxDist <= 0 {
		maxDist = DefaultMaxDistanceKM
	}
	s := &Service{
		api:       api,
		locator:   locator,
		rides:     rides,
		logger:    log,
		maxDistKM: maxDist,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttemptReserve checks that the rider is next to the bike and, if so, asks
// the server to reserve it. Local rejections and server refusals are reported
// through the returned Outcome; an error means the attempt could not be made.
func (s *Service) AttemptReserve(ctx context.Context, b bike.Bike) (*Outcome, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	here, err := s.locator.CurrentPosition(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device position: %w", err)
	}

	if here.Mocked {
		if s.reporter != nil {
			s.reporter.ReportUntrustedLocation(here)
		}
		return s.finish(&Outcome{
			Outcome: OutcomeUntrusted,
			Notice:  Notice{Level: LevelError, Text: "Your location cannot be trusted"},
		}), nil
	}

	target := b.Location()
	dist := distance.Haversine(here.Latitude, here.Longitude, target.Latitude, target.Longitude)

	if dist > s.maxDistKM {
		s.logger.Info("Reservation abandoned, rider too far from bike",
			logger.String("bike_id", b.ID.String()),
			logger.Float64("distance_km", dist),
			logger.Float64("max_distance_km", s.maxDistKM),
		)
		return s.finish(&Outcome{
			Outcome:    OutcomeTooFar,
			DistanceKM: dist,
			Notice:     Notice{Level: LevelError, Text: "You are too far away from the bike!"},
		}), nil
	}

	if err := s.api.ReserveBike(ctx, b.ID); err != nil {
		if !errors.Is(err, bikeapi.ErrReservationRejected) {
			return nil, fmt.Errorf("failed to reserve bike: %w", err)
		}
		s.logger.Info("Reservation rejected by server",
			logger.String("bike_id", b.ID.String()),
			logger.Err(err),
		)
		return s.finish(&Outcome{
			Outcome:    OutcomeRejected,
			DistanceKM: dist,
			Notice:     Notice{Level: LevelError, Text: fmt.Sprintf("Bike %s could not be reserved!", b.Name)},
		}), nil
	}

	out := &Outcome{
		Outcome:    OutcomeReserved,
		Reserved:   true,
		DistanceKM: dist,
		Notice:     Notice{Level: LevelSuccess, Text: fmt.Sprintf("Bike %s reserved!", b.Name)},
	}

	session, err := s.rides.FetchCurrentRide(ctx)
	if err != nil {
		s.logger.Warn("Reserved bike but could not load the ride yet", logger.Err(err))
	}
	out.Session = session

	s.logger.Info("Bike reserved",
		logger.String("bike_id", b.ID.String()),
		logger.Float64("distance_km", dist),
	)
	return s.finish(out), nil
}

func (s *Service) finish(out *Outcome) *Outcome {
	if s.recorder != nil {
		s.recorder.RecordReservationAttempt(out.Outcome)
	}
	if s.notifier != nil {
		s.notifier.Notify(out.Notice)
	}
	return out
}
