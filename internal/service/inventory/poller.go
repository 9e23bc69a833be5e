package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/busterbike/ride-tracker/internal/domain/bike"
	"github.com/busterbike/ride-tracker/pkg/logger"
)

// Lister fetches the bike list from the server
type Lister interface {
	ListBikes(ctx context.Context) ([]bike.Bike, error)
}

// Config holds inventory configuration
type Config struct {
	PollInterval time.Duration
}

// Poller keeps the local bike inventory in step with the server
type Poller struct {
	lister   Lister
	cache    Cache
	logger   *logger.Logger
	interval time.Duration
}

// NewPoller creates a new inventory poller
func NewPoller(lister Lister, cache Cache, log *logger.Logger, cfg Config) *Poller {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		lister:   lister,
		cache:    cache,
		logger:   log,
		interval: interval,
	}
}

// Run refreshes immediately and then on every tick until ctx is cancelled
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("Failed to refresh bike inventory", logger.Err(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Refresh fetches the bike list once and stores it
func (p *Poller) Refresh(ctx context.Context) error {
	bikes, err := p.lister.ListBikes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list bikes: %w", err)
	}
	if err := p.cache.Put(ctx, bikes); err != nil {
		return fmt.Errorf("failed to cache bikes: %w", err)
	}
	p.logger.Debug("Bike inventory refreshed", logger.Int("count", len(bikes)))
	return nil
}

// Bikes returns the cached bike list
func (p *Poller) Bikes(ctx context.Context) ([]bike.Bike, error) {
	return p.cache.All(ctx)
}

// Bike looks one bike up in the cached list
func (p *Poller) Bike(ctx context.Context, id bike.ID) (*bike.Bike, error) {
	bikes, err := p.cache.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range bikes {
		if bikes[i].ID == id {
			b := bikes[i]
			return &b, nil
		}
	}
	return nil, bike.ErrBikeNotFound
}
