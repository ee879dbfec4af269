package worker

import (
	"context"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/domain"
	"github.com/KhanhKube/hotel-management-sub000/internal/metrics"
	"github.com/KhanhKube/hotel-management-sub000/internal/models"

	"github.com/rs/zerolog"
)

// CartExpiryWorker sweeps abandoned CART rows. Each delete is guarded on
// status and age, so a cart checked out between the read and the delete is
// left alone.
type CartExpiryWorker struct {
	store    domain.Store
	cache    domain.AvailabilityCache
	ttl      time.Duration
	interval time.Duration
	retry    Backoff
	logger   *zerolog.Logger
}

func NewCartExpiryWorker(store domain.Store, cache domain.AvailabilityCache, ttl, interval time.Duration, logger *zerolog.Logger) *CartExpiryWorker {
	if ttl <= 0 {
		ttl = models.CartTTL
	}
	if interval <= 0 {
		interval = models.CartSweepInterval
	}
	return &CartExpiryWorker{
		store:    store,
		cache:    cache,
		ttl:      ttl,
		interval: interval,
		retry: Backoff{
			MaxAttempts: 3,
			Base:        time.Second,
			Cap:         10 * time.Second,
		},
		logger: logger,
	}
}

func (w *CartExpiryWorker) Start(ctx context.Context) {
	w.logger.Info().
		Dur("ttl", w.ttl).
		Dur("interval", w.interval).
		Msg("Cart expiry worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Cart expiry worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Row failures are isolated: one bad row
// never stops the rest of the batch.
func (w *CartExpiryWorker) RunOnce(ctx context.Context) {
	cutoff := time.Now().Add(-w.ttl)

	carts, err := w.loadExpired(ctx, cutoff)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to load expired carts")
		metrics.IncSweepError("cart_expiry")
		return
	}
	if len(carts) == 0 {
		return
	}

	removed := 0
	for _, cart := range carts {
		deleted, err := w.store.DeleteCartIfExpired(ctx, cart.ID, cutoff)
		if err != nil {
			w.logger.Error().Err(err).Int64("booking_id", cart.ID).Msg("Failed to delete expired cart")
			metrics.IncSweepError("cart_expiry")
			continue
		}
		if !deleted {
			continue
		}
		removed++
		if w.cache != nil {
			_ = w.cache.Invalidate(ctx, cart.RoomID)
		}
	}

	metrics.AddSweepRows("cart_expiry", removed)
	w.logger.Info().
		Int("expired", len(carts)).
		Int("removed", removed).
		Msg("Expired carts swept")
}

func (w *CartExpiryWorker) loadExpired(ctx context.Context, cutoff time.Time) ([]*models.Booking, error) {
	var carts []*models.Booking
	var err error
	for attempt := 1; ; attempt++ {
		carts, err = w.store.ExpiredCarts(ctx, cutoff)
		if err == nil || attempt > w.retry.MaxAttempts {
			return carts, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(w.retry.Delay(attempt)):
		}
	}
}
