package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverAvailabilityCache serves from Redis while it is healthy and falls
// back to the in-memory cache otherwise. Recovery is retried at most once a
// minute.
type FailoverAvailabilityCache struct {
	primary   domain.AvailabilityCache
	fallback  domain.AvailabilityCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverAvailabilityCache(primary, fallback domain.AvailabilityCache, logger *zerolog.Logger) *FailoverAvailabilityCache {
	return &FailoverAvailabilityCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FailoverAvailabilityCache) markDown(err error) {
	c.logger.Error().Err(err).Msg("Primary availability cache failed, falling back to memory")
	c.isDown.Store(true)
	c.lastCheck.Store(time.Now().UnixNano())
}

func (c *FailoverAvailabilityCache) shouldRetry() bool {
	return time.Since(time.Unix(0, c.lastCheck.Load())) > time.Minute
}

func (c *FailoverAvailabilityCache) Get(ctx context.Context, key string) (string, bool, error) {
	if !c.isDown.Load() {
		value, ok, err := c.primary.Get(ctx, key)
		if err == nil {
			return value, ok, nil
		}
		c.markDown(err)
	} else if c.shouldRetry() {
		value, ok, err := c.primary.Get(ctx, key)
		if err == nil {
			c.isDown.Store(false)
			return value, ok, nil
		}
		c.lastCheck.Store(time.Now().UnixNano())
	}

	return c.fallback.Get(ctx, key)
}

func (c *FailoverAvailabilityCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if !c.isDown.Load() {
		if err := c.primary.Set(ctx, key, value, ttl); err == nil {
			return nil
		} else {
			c.markDown(err)
		}
	}

	return c.fallback.Set(ctx, key, value, ttl)
}

func (c *FailoverAvailabilityCache) Invalidate(ctx context.Context, roomID int64) error {
	// Both sides are invalidated; a write must never leave either cache stale.
	var primaryErr error
	if !c.isDown.Load() {
		if primaryErr = c.primary.Invalidate(ctx, roomID); primaryErr != nil {
			c.markDown(primaryErr)
		}
	}

	return c.fallback.Invalidate(ctx, roomID)
}
