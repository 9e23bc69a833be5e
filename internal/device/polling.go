package device

import (
	"context"
	"sync"
	"time"

	"github.com/busterbike/ride-tracker/internal/domain/ride"
	"github.com/busterbike/ride-tracker/internal/service/sampler"
)

// Locator returns the device's current position
type Locator interface {
	CurrentPosition(ctx context.Context) (ride.Sample, error)
}

// PollingSource asks a Locator for a fix on a fixed interval (foreground mode)
type PollingSource struct {
	locator  Locator
	interval time.Duration
}

// NewPollingSource creates a polling source
func NewPollingSource(locator Locator, interval time.Duration) *PollingSource {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &PollingSource{locator: locator, interval: interval}
}

// Subscribe implements sampler.Source
func (p *PollingSource) Subscribe(ctx context.Context) (sampler.Subscription, error) {
	runCtx, cancel := context.WithCancel(ctx)
	sub := &pollingSubscription{
		cancel:  cancel,
		samples: make(chan ride.Sample),
		errs:    make(chan error),
		done:    make(chan struct{}),
	}
	go p.poll(runCtx, sub)
	return sub, nil
}

func (p *PollingSource) poll(ctx context.Context, sub *pollingSubscription) {
	defer close(sub.done)
	defer close(sub.errs)
	defer close(sub.samples)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sample, err := p.locator.CurrentPosition(ctx)
		if err != nil {
			select {
			case sub.errs <- err:
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case sub.samples <- sample:
		case <-ctx.Done():
			return
		}
	}
}

type pollingSubscription struct {
	cancel  context.CancelFunc
	samples chan ride.Sample
	errs    chan error
	done    chan struct{}
	once    sync.Once
}

func (s *pollingSubscription) Samples() <-chan ride.Sample { return s.samples }

func (s *pollingSubscription) Errors() <-chan error { return s.errs }

func (s *pollingSubscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}
