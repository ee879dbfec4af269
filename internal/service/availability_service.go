package service

import (
	"context"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/database"
	"github.com/KhanhKube/hotel-management-sub000/internal/domain"
	"github.com/KhanhKube/hotel-management-sub000/internal/models"
	"github.com/KhanhKube/hotel-management-sub000/internal/repository"

	"github.com/rs/zerolog"
)

type AvailabilityService struct {
	store    domain.Store
	cache    domain.AvailabilityCache
	cacheTTL time.Duration
	logger   *zerolog.Logger
}

func NewAvailabilityService(store domain.Store, cache domain.AvailabilityCache, cacheTTL time.Duration, logger *zerolog.Logger) *AvailabilityService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &AvailabilityService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// CheckAvailability reports whether [start, end) is free for the room. When
// the range is taken it also returns the blocking booking. Only free answers
// are cached; cart insertion re-validates inside its transaction, so a stale
// free answer can never produce a double booking.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, roomID int64, start, end time.Time) (bool, *models.Booking, error) {
	if !start.Before(end) {
		return false, nil, database.ErrInvalidRange
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return false, nil, err
	}
	if !room.Bookable() {
		return false, nil, nil
	}

	key := repository.CacheKey(roomID, start, end)
	if s.cache != nil {
		if _, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			return true, nil, nil
		}
	}

	if window, err := s.store.OverlappingWindow(ctx, roomID, start, end); err != nil {
		return false, nil, err
	} else if window != nil {
		return false, nil, nil
	}

	conflict, err := s.store.FindConflict(ctx, roomID, start, end, 0)
	if err != nil {
		return false, nil, err
	}
	if conflict != nil {
		return false, conflict, nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, "1", s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("Failed to cache availability")
		}
	}
	return true, nil, nil
}

// NextAvailableDate reports when the room frees up, taking both bookings and
// open maintenance windows into account. The second result is false when the
// room is free right now.
func (s *AvailabilityService) NextAvailableDate(ctx context.Context, roomID int64) (time.Time, bool, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return time.Time{}, false, err
	}

	now := time.Now()
	next, busy, err := s.store.NextAvailableDate(ctx, roomID, now)
	if err != nil {
		return time.Time{}, false, err
	}

	if window, err := s.store.OverlappingWindow(ctx, roomID, now, now.AddDate(10, 0, 0)); err != nil {
		return time.Time{}, false, err
	} else if window != nil && window.Covers(now) {
		if !busy || window.EndDate.After(next) {
			next = window.EndDate
		}
		busy = true
	}

	return next, busy, nil
}

// UpcomingBookings lists the room's open bookings, soonest first.
func (s *AvailabilityService) UpcomingBookings(ctx context.Context, roomID int64, limit int) ([]*models.Booking, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	return s.store.UpcomingBookings(ctx, roomID, time.Now(), limit)
}

// ListAvailableRooms returns rooms free for the whole of [start, end).
func (s *AvailabilityService) ListAvailableRooms(ctx context.Context, start, end time.Time) ([]*models.Room, error) {
	if !start.Before(end) {
		return nil, database.ErrInvalidRange
	}

	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	var available []*models.Room
	for _, room := range rooms {
		if !room.Bookable() {
			continue
		}
		free, _, err := s.CheckAvailability(ctx, room.ID, start, end)
		if err != nil {
			return nil, err
		}
		if free {
			available = append(available, room)
		}
	}
	return available, nil
}
