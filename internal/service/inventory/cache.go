package inventory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/busterbike/ride-tracker/internal/domain/bike"
	"github.com/busterbike/ride-tracker/pkg/cache"
	"github.com/redis/go-redis/v9"
)

const redisKey = "tracker:bikes:inventory"

// Cache stores the most recent bike list
type Cache interface {
	Put(ctx context.Context, bikes []bike.Bike) error
	All(ctx context.Context) ([]bike.Bike, error)
}

// MemoryCache keeps the bike list in process memory
type MemoryCache struct {
	mu    sync.RWMutex
	bikes []bike.Bike
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Put replaces the cached list
func (m *MemoryCache) Put(_ context.Context, bikes []bike.Bike) error {
	cp := make([]bike.Bike, len(bikes))
	for i, b := range bikes {
		cp[i] = b.Clone()
	}
	m.mu.Lock()
	m.bikes = cp
	m.mu.Unlock()
	return nil
}

// All returns a copy of the cached list
func (m *MemoryCache) All(_ context.Context) ([]bike.Bike, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := make([]bike.Bike, len(m.bikes))
	for i, b := range m.bikes {
		cp[i] = b.Clone()
	}
	return cp, nil
}

// RedisCache keeps the bike list in Redis so it survives tracker restarts and
// can be shared with other local tools
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache. Entries expire after ttl.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Put replaces the cached list
func (r *RedisCache) Put(ctx context.Context, bikes []bike.Bike) error {
	return cache.SetJSON(ctx, r.client, redisKey, bikes, r.ttl)
}

// All returns the cached list; an expired or missing list is empty
func (r *RedisCache) All(ctx context.Context) ([]bike.Bike, error) {
	var bikes []bike.Bike
	err := cache.GetJSON(ctx, r.client, redisKey, &bikes)
	if errors.Is(err, cache.ErrMiss) {
		return []bike.Bike{}, nil
	}
	if err != nil {
		return nil, err
	}
	return bikes, nil
}
