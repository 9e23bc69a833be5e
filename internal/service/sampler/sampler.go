package sampler

import (
	"context"
	"errors"
	"sync"

	"github.com/busterbike/ride-tracker/internal/domain/ride"
	"github.com/busterbike/ride-tracker/internal/service/distance"
	"github.com/busterbike/ride-tracker/internal/service/session"
	"github.com/busterbike/ride-tracker/pkg/logger"
)

// Subscription is a live stream of samples from a location source. Close
// stops the stream; both channels are closed afterwards.
type Subscription interface {
	Samples() <-chan ride.Sample
	Errors() <-chan error
	Close()
}

// Source is a periodic location provider, foreground or background
type Source interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Tracker is the session-side sink for validated samples
type Tracker interface {
	ApplySample(sample ride.Sample) (distance.Step, error)
	SetTrackingPaused(paused bool)
}

// TrustReporter is told when the device delivers a mocked location
type TrustReporter interface {
	ReportUntrustedLocation(sample ride.Sample)
}

// Recorder receives sampler metrics
type Recorder interface {
	RecordSampleAccepted(distanceKM float64)
	RecordSampleRejected(reason string)
}

const (
	RejectMocked  = "mocked"
	RejectInvalid = "invalid"
	RejectNoise   = "below_threshold"
)

// Sampler bridges a location source into the active ride. It must only be
// subscribed while a ride exists.
type Sampler struct {
	source   Source
	tracker  Tracker
	reporter TrustReporter
	recorder Recorder
	logger   *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new sampler. reporter and recorder may be nil.
func New(source Source, tracker Tracker, reporter TrustReporter, recorder Recorder, log *logger.Logger) *Sampler {
	return &Sampler{
		source:   source,
		tracker:  tracker,
		reporter: reporter,
		recorder: recorder,
		logger:   log,
	}
}

// Running reports whether the sampler is subscribed to its source
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// Start subscribes to the source. Calling Start while running is a no-op.
func (s *Sampler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub, err := s.source.Subscribe(runCtx)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(runCtx, sub, done)

	s.logger.Info("Location tracking started")
	return nil
}

// Stop tears down the subscription and waits for the worker to exit
func (s *Sampler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if done == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("Location tracking stopped")
}

// HandleSessionEvent keeps the subscription in step with the session: on
// while a ride exists, off as soon as it is gone
func (s *Sampler) HandleSessionEvent(evt session.Event) {
	switch evt.Type {
	case session.EventStarted, session.EventRefreshed:
		if err := s.Start(context.Background()); err != nil {
			s.logger.Error("Failed to start location tracking", logger.Err(err))
		}
	case session.EventEnded, session.EventCleared:
		s.Stop()
	}
}

func (s *Sampler) run(ctx context.Context, sub Subscription, done chan struct{}) {
	defer close(done)
	defer sub.Close()

	samples, errs := sub.Samples(), sub.Errors()
	for samples != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-samples:
			if !ok {
				samples = nil
				continue
			}
			s.handle(sample)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.handleError(err)
		}
	}
}

// handle applies the validation policy to one raw sample
func (s *Sampler) handle(sample ride.Sample) {
	if sample.Mocked {
		s.logger.Warn("Rejected mocked location",
			logger.Float64("latitude", sample.Latitude),
			logger.Float64("longitude", sample.Longitude),
		)
		s.reject(RejectMocked)
		if s.reporter != nil {
			s.reporter.ReportUntrustedLocation(sample)
		}
		return
	}

	if !sample.Location().Valid() {
		s.reject(RejectInvalid)
		s.handleError(ride.ErrInvalidSample)
		return
	}

	step, err := s.tracker.ApplySample(sample)
	if err != nil {
		if !errors.Is(err, ride.ErrNoActiveRide) {
			s.logger.Error("Failed to apply sample", logger.Err(err))
		}
		return
	}

	if !step.Applied {
		s.reject(RejectNoise)
		return
	}

	s.logger.Debug("Distance accumulated",
		logger.Float64("step_km", step.DistanceKM),
		logger.Float64("total_km", step.TotalKM),
	)
	if s.recorder != nil {
		s.recorder.RecordSampleAccepted(step.DistanceKM)
	}
}

// handleError pauses tracking; the session itself stays active
func (s *Sampler) handleError(err error) {
	s.logger.Warn("Location source error, tracking paused", logger.Err(err))
	s.tracker.SetTrackingPaused(true)
}

func (s *Sampler) reject(reason string) {
	if s.recorder != nil {
		s.recorder.RecordSampleRejected(reason)
	}
}
