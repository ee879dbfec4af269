package worker

import (
	"context"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/domain"
	"github.com/KhanhKube/hotel-management-sub000/internal/metrics"
	"github.com/KhanhKube/hotel-management-sub000/internal/models"

	"github.com/rs/zerolog"
)

// MaintenanceSweepWorker runs once a day at a fixed hour. It activates
// SCHEDULED windows whose range has begun and completes ACTIVE windows whose
// range has passed, adjusting room statuses on both edges.
type MaintenanceSweepWorker struct {
	store  domain.Store
	cache  domain.AvailabilityCache
	hour   int
	logger *zerolog.Logger
}

func NewMaintenanceSweepWorker(store domain.Store, cache domain.AvailabilityCache, hour int, logger *zerolog.Logger) *MaintenanceSweepWorker {
	if hour < 0 || hour > 23 {
		hour = models.DefaultDailySweepHour
	}
	return &MaintenanceSweepWorker{
		store:  store,
		cache:  cache,
		hour:   hour,
		logger: logger,
	}
}

func (w *MaintenanceSweepWorker) Start(ctx context.Context) {
	w.logger.Info().Int("hour", w.hour).Msg("Maintenance sweep worker started")

	timer := time.NewTimer(timeUntilNextHour(w.hour))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Maintenance sweep worker stopped")
			return
		case <-timer.C:
			w.RunOnce(ctx)
			timer.Reset(24 * time.Hour)
		}
	}
}

// RunOnce activates and completes due windows. Failures are isolated per
// window.
func (w *MaintenanceSweepWorker) RunOnce(ctx context.Context) {
	now := time.Now()
	processed := 0

	due, err := w.store.DueScheduledWindows(ctx, now)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to load due maintenance windows")
		metrics.IncSweepError("maintenance_sweep")
	} else {
		for _, window := range due {
			if !window.EndDate.After(now) {
				// The whole range elapsed before any sweep saw it; close
				// the window out without ever forcing the room.
				if err := w.expire(ctx, window); err != nil {
					w.logger.Error().Err(err).Int64("window_id", window.ID).Msg("Failed to close elapsed maintenance window")
					metrics.IncSweepError("maintenance_sweep")
					continue
				}
				processed++
				continue
			}
			activated, err := w.activate(ctx, window, now)
			if err != nil {
				w.logger.Error().Err(err).Int64("window_id", window.ID).Msg("Failed to activate maintenance window")
				metrics.IncSweepError("maintenance_sweep")
				continue
			}
			if activated {
				processed++
			}
		}
	}

	expired, err := w.store.ExpiredActiveWindows(ctx, now)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to load expired maintenance windows")
		metrics.IncSweepError("maintenance_sweep")
	} else {
		for _, window := range expired {
			if err := w.complete(ctx, window, now); err != nil {
				w.logger.Error().Err(err).Int64("window_id", window.ID).Msg("Failed to complete maintenance window")
				metrics.IncSweepError("maintenance_sweep")
				continue
			}
			processed++
		}
	}

	metrics.AddSweepRows("maintenance_sweep", processed)
	w.logger.Info().Int("processed", processed).Msg("Maintenance sweep finished")
}

// activate flips a due SCHEDULED window to ACTIVE and forces the room out of
// service. At most one window may be ACTIVE per room, so a room already under
// an active window keeps this one SCHEDULED until a later sweep.
func (w *MaintenanceSweepWorker) activate(ctx context.Context, window *models.MaintenanceWindow, now time.Time) (bool, error) {
	busy, err := w.store.HasActiveWindow(ctx, window.RoomID, now)
	if err != nil {
		return false, err
	}
	if busy {
		w.logger.Debug().
			Int64("window_id", window.ID).
			Int64("room_id", window.RoomID).
			Msg("Room already under active maintenance, window deferred")
		return false, nil
	}

	if err := w.store.TransitionWindow(ctx, window.ID, models.MaintenanceScheduled, models.MaintenanceActive); err != nil {
		return false, err
	}

	room, err := w.store.GetRoom(ctx, window.RoomID)
	if err != nil {
		return false, err
	}
	// STOP_WORKING is a stronger administrative claim and stays in place.
	if room.SystemStatus != models.SystemStopWorking {
		if err := w.store.SetRoomSystemStatus(ctx, window.RoomID, models.SystemMaintenance); err != nil {
			return false, err
		}
	}
	if err := w.store.SetRoomStatus(ctx, window.RoomID, models.RoomMaintenance); err != nil {
		return false, err
	}
	if w.cache != nil {
		_ = w.cache.Invalidate(ctx, window.RoomID)
	}
	w.logger.Info().
		Int64("window_id", window.ID).
		Int64("room_id", window.RoomID).
		Msg("Maintenance window activated")
	return true, nil
}

// expire walks a SCHEDULED window whose range has fully passed straight
// through ACTIVE to COMPLETED. The room never leaves service for it.
func (w *MaintenanceSweepWorker) expire(ctx context.Context, window *models.MaintenanceWindow) error {
	if err := w.store.TransitionWindow(ctx, window.ID, models.MaintenanceScheduled, models.MaintenanceActive); err != nil {
		return err
	}
	if err := w.store.TransitionWindow(ctx, window.ID, models.MaintenanceActive, models.MaintenanceCompleted); err != nil {
		return err
	}
	w.logger.Info().
		Int64("window_id", window.ID).
		Int64("room_id", window.RoomID).
		Msg("Elapsed maintenance window closed")
	return nil
}

func (w *MaintenanceSweepWorker) complete(ctx context.Context, window *models.MaintenanceWindow, now time.Time) error {
	if err := w.store.TransitionWindow(ctx, window.ID, models.MaintenanceActive, models.MaintenanceCompleted); err != nil {
		return err
	}

	// Another active window may still cover the room.
	active, err := w.store.HasActiveWindow(ctx, window.RoomID, now)
	if err != nil {
		return err
	}
	if !active {
		room, err := w.store.GetRoom(ctx, window.RoomID)
		if err != nil {
			return err
		}
		if room.SystemStatus == models.SystemMaintenance {
			if err := w.store.SetRoomSystemStatus(ctx, window.RoomID, models.SystemWorking); err != nil {
				return err
			}
			room.SystemStatus = models.SystemWorking
		}
		if room.SystemStatus != models.SystemStopWorking && room.Status == models.RoomMaintenance {
			if err := w.store.SetRoomStatus(ctx, window.RoomID, models.RoomAvailable); err != nil {
				return err
			}
		}
	}

	if w.cache != nil {
		_ = w.cache.Invalidate(ctx, window.RoomID)
	}
	w.logger.Info().
		Int64("window_id", window.ID).
		Int64("room_id", window.RoomID).
		Msg("Maintenance window completed")
	return nil
}
