package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/busterbike/ride-tracker/internal/domain/ride"
	"github.com/busterbike/ride-tracker/internal/service/sampler"
)

const subscriptionBuffer = 16

var (
	ErrNoFix    = errors.New("no location fix yet")
	ErrStaleFix = errors.New("last location fix is too old")
)

// Feed receives samples pushed by the device (background tracking mode) and
// fans them out to subscribers. It also remembers the last fix so it can act
// as a Locator.
type Feed struct {
	maxAge time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last *ride.Sample
	subs map[*feedSubscription]struct{}
}

// NewFeed creates a feed. A zero maxAge means fixes never go stale.
func NewFeed(maxAge time.Duration) *Feed {
	return &Feed{
		maxAge: maxAge,
		now:    time.Now,
		subs:   make(map[*feedSubscription]struct{}),
	}
}

// Push records a sample and delivers it to every subscriber. Slow
// subscribers miss samples rather than block the device.
func (f *Feed) Push(sample ride.Sample) {
	if sample.ReceivedAt.IsZero() {
		sample.ReceivedAt = f.now()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	last := sample
	f.last = &last
	for sub := range f.subs {
		select {
		case sub.samples <- sample:
		default:
		}
	}
}

// ReportError forwards a location-source failure to subscribers
func (f *Feed) ReportError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for sub := range f.subs {
		select {
		case sub.errs <- err:
		default:
		}
	}
}

// CurrentPosition returns the last fix pushed by the device
func (f *Feed) CurrentPosition(ctx context.Context) (ride.Sample, error) {
	if err := ctx.Err(); err != nil {
		return ride.Sample{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.last == nil {
		return ride.Sample{}, ErrNoFix
	}
	if f.maxAge > 0 && f.now().Sub(f.last.ReceivedAt) > f.maxAge {
		return ride.Sample{}, ErrStaleFix
	}
	return *f.last, nil
}

// Subscribers returns the number of live subscriptions
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Subscribe implements sampler.Source. The subscription ends when ctx is
// cancelled or Close is called.
func (f *Feed) Subscribe(ctx context.Context) (sampler.Subscription, error) {
	sub := &feedSubscription{
		feed:    f,
		samples: make(chan ride.Sample, subscriptionBuffer),
		errs:    make(chan error, subscriptionBuffer),
	}

	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

type feedSubscription struct {
	feed    *Feed
	samples chan ride.Sample
	errs    chan error
	once    sync.Once
}

func (s *feedSubscription) Samples() <-chan ride.Sample { return s.samples }

func (s *feedSubscription) Errors() <-chan error { return s.errs }

func (s *feedSubscription) Close() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s)
		close(s.samples)
		close(s.errs)
		s.feed.mu.Unlock()
	})
}
