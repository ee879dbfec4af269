package service

import (
	"context"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/database"
	"github.com/KhanhKube/hotel-management-sub000/internal/domain"
	"github.com/KhanhKube/hotel-management-sub000/internal/events"
	"github.com/KhanhKube/hotel-management-sub000/internal/models"

	"github.com/rs/zerolog"
)

type MaintenanceService struct {
	store    domain.Store
	cache    domain.AvailabilityCache
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewMaintenanceService(store domain.Store, cache domain.AvailabilityCache, eventBus domain.EventPublisher, logger *zerolog.Logger) *MaintenanceService {
	return &MaintenanceService{
		store:    store,
		cache:    cache,
		eventBus: eventBus,
		logger:   logger,
	}
}

// ScheduleMaintenance opens a SCHEDULED window for the room. Ranges already
// held by bookings are rejected so maintenance never evicts a guest.
func (s *MaintenanceService) ScheduleMaintenance(ctx context.Context, roomID int64, start, end time.Time, reason string) (*models.MaintenanceWindow, error) {
	if !start.Before(end) {
		return nil, database.ErrInvalidRange
	}
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	conflict, err := s.store.FindConflict(ctx, roomID, start, end, 0)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, &database.RoomUnavailableError{
			RoomID:    roomID,
			BookingID: conflict.ID,
			StartDate: conflict.StartDate,
			EndDate:   conflict.EndDate,
		}
	}

	window := &models.MaintenanceWindow{
		RoomID:    roomID,
		StartDate: start,
		EndDate:   end,
		Reason:    reason,
	}
	if err := s.store.CreateMaintenanceWindow(ctx, window); err != nil {
		return nil, err
	}

	s.invalidate(ctx, roomID)
	s.publishWindowEvent(events.EventMaintenanceOpened, window)

	s.logger.Info().
		Int64("room_id", roomID).
		Int64("window_id", window.ID).
		Time("start", start).
		Time("end", end).
		Msg("Maintenance window scheduled")

	return window, nil
}

// CompleteMaintenance closes an ACTIVE window early and restores the room
// unless another active window still covers it.
func (s *MaintenanceService) CompleteMaintenance(ctx context.Context, windowID int64) (*models.MaintenanceWindow, error) {
	window, err := s.store.GetMaintenanceWindow(ctx, windowID)
	if err != nil {
		return nil, err
	}

	if err := s.store.TransitionWindow(ctx, windowID, models.MaintenanceActive, models.MaintenanceCompleted); err != nil {
		return nil, err
	}
	window.Status = models.MaintenanceCompleted

	if err := s.restoreRoom(ctx, window.RoomID); err != nil {
		s.logger.Warn().Err(err).Int64("room_id", window.RoomID).Msg("Failed to restore room after maintenance")
	}

	s.invalidate(ctx, window.RoomID)
	s.publishWindowEvent(events.EventMaintenanceClosed, window)
	return window, nil
}

// CancelMaintenance drops a SCHEDULED window before it activates.
func (s *MaintenanceService) CancelMaintenance(ctx context.Context, windowID int64) error {
	window, err := s.store.GetMaintenanceWindow(ctx, windowID)
	if err != nil {
		return err
	}
	if err := s.store.TransitionWindow(ctx, windowID, models.MaintenanceScheduled, models.MaintenanceCompleted); err != nil {
		return err
	}
	s.invalidate(ctx, window.RoomID)
	return nil
}

func (s *MaintenanceService) ListRooms(ctx context.Context) ([]*models.Room, error) {
	return s.store.ListRooms(ctx)
}

func (s *MaintenanceService) ListWindows(ctx context.Context, roomID int64) ([]*models.MaintenanceWindow, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.store.ListMaintenanceWindows(ctx, roomID)
}

// SetRoomSystemStatus is the admin lever for the hardware axis. Moving a room
// into MAINTENANCE or STOP_WORKING also takes over the guest-facing status.
func (s *MaintenanceService) SetRoomSystemStatus(ctx context.Context, roomID int64, status models.RoomSystemStatus) (*models.Room, error) {
	if err := s.store.SetRoomSystemStatus(ctx, roomID, status); err != nil {
		return nil, err
	}

	if status == models.SystemMaintenance || status == models.SystemStopWorking {
		if err := s.store.SetRoomStatus(ctx, roomID, models.RoomMaintenance); err != nil {
			s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("Failed to mark room under maintenance")
		}
	} else {
		if err := s.restoreRoom(ctx, roomID); err != nil {
			s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("Failed to restore room status")
		}
	}

	s.invalidate(ctx, roomID)

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	s.publishRoomEvent(room)
	return room, nil
}

// restoreRoom recomputes both status axes after maintenance ends. Occupancy
// and cleaning are owned by the booking lifecycle, so only rooms currently
// shown as MAINTENANCE are touched; STOP_WORKING stays until an admin lifts
// it.
func (s *MaintenanceService) restoreRoom(ctx context.Context, roomID int64) error {
	active, err := s.store.HasActiveWindow(ctx, roomID, time.Now())
	if err != nil {
		return err
	}
	if active {
		return nil
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.SystemStatus == models.SystemMaintenance {
		if err := s.store.SetRoomSystemStatus(ctx, roomID, models.SystemWorking); err != nil {
			return err
		}
		room.SystemStatus = models.SystemWorking
	}
	if room.SystemStatus == models.SystemStopWorking {
		return nil
	}
	if room.Status != models.RoomMaintenance {
		return nil
	}

	return s.store.SetRoomStatus(ctx, roomID, models.RoomAvailable)
}

func (s *MaintenanceService) invalidate(ctx context.Context, roomID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, roomID); err != nil {
		s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("Failed to invalidate availability cache")
	}
}

func (s *MaintenanceService) publishWindowEvent(eventType string, window *models.MaintenanceWindow) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, window); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}

func (s *MaintenanceService) publishRoomEvent(room *models.Room) {
	if s.eventBus == nil {
		return
	}
	payload := events.RoomEventPayload{
		RoomID:       room.ID,
		RoomNumber:   room.RoomNumber,
		Status:       string(room.Status),
		SystemStatus: string(room.SystemStatus),
	}
	if err := s.eventBus.PublishJSON(events.EventRoomStatusChanged, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", events.EventRoomStatusChanged).Msg("Failed to publish event")
	}
}
