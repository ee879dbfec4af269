package worker

import (
	"context"
	"errors"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/database"
	"github.com/KhanhKube/hotel-management-sub000/internal/domain"
	"github.com/KhanhKube/hotel-management-sub000/internal/metrics"
	"github.com/KhanhKube/hotel-management-sub000/internal/models"

	"github.com/rs/zerolog"
)

// CleaningReleaseWorker is the daily safety net for rooms shown as CLEANING
// after their cleaning bookings were already closed out of band. Rooms with
// an open NEED_CLEAN or CLEANING booking are left for the normal flow.
type CleaningReleaseWorker struct {
	store  domain.Store
	cache  domain.AvailabilityCache
	hour   int
	logger *zerolog.Logger
}

func NewCleaningReleaseWorker(store domain.Store, cache domain.AvailabilityCache, hour int, logger *zerolog.Logger) *CleaningReleaseWorker {
	if hour < 0 || hour > 23 {
		hour = models.DefaultDailySweepHour
	}
	return &CleaningReleaseWorker{
		store:  store,
		cache:  cache,
		hour:   hour,
		logger: logger,
	}
}

func (w *CleaningReleaseWorker) Start(ctx context.Context) {
	w.logger.Info().Int("hour", w.hour).Msg("Cleaning release worker started")

	timer := time.NewTimer(timeUntilNextHour(w.hour))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Cleaning release worker stopped")
			return
		case <-timer.C:
			w.RunOnce(ctx)
			timer.Reset(24 * time.Hour)
		}
	}
}

// RunOnce releases stale CLEANING rooms. Failures are isolated per room.
func (w *CleaningReleaseWorker) RunOnce(ctx context.Context) {
	rooms, err := w.store.ListRoomsByStatus(ctx, models.RoomCleaning)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to list cleaning rooms")
		metrics.IncSweepError("cleaning_release")
		return
	}

	released := 0
	for _, room := range rooms {
		ok, err := w.releaseRoom(ctx, room)
		if err != nil {
			w.logger.Error().Err(err).Int64("room_id", room.ID).Msg("Failed to release cleaning room")
			metrics.IncSweepError("cleaning_release")
			continue
		}
		if ok {
			released++
		}
	}

	metrics.AddSweepRows("cleaning_release", released)
	w.logger.Info().
		Int("candidates", len(rooms)).
		Int("released", released).
		Msg("Cleaning release sweep finished")
}

func (w *CleaningReleaseWorker) releaseRoom(ctx context.Context, room *models.Room) (bool, error) {
	open, err := w.store.CountBookingsInStatuses(ctx, room.ID,
		models.BookingCheckedOut, models.BookingNeedClean, models.BookingCleaning)
	if err != nil {
		return false, err
	}
	if open > 0 {
		return false, nil
	}

	if room.SystemStatus == models.SystemMaintenance || room.SystemStatus == models.SystemStopWorking {
		return false, nil
	}
	active, err := w.store.HasActiveWindow(ctx, room.ID, time.Now())
	if err != nil {
		return false, err
	}
	if active {
		return false, nil
	}

	err = w.store.SetRoomStatusIf(ctx, room.ID, models.RoomCleaning, models.RoomAvailable)
	if err != nil {
		// Someone moved the room since we read it; nothing to release.
		if errors.Is(err, database.ErrConcurrentModification) {
			return false, nil
		}
		return false, err
	}

	if w.cache != nil {
		_ = w.cache.Invalidate(ctx, room.ID)
	}
	w.logger.Info().
		Int64("room_id", room.ID).
		Str("room_number", room.RoomNumber).
		Msg("Stale cleaning room released")
	return true, nil
}
