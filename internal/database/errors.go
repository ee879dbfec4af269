package database

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRoomNotFound           = errors.New("room not found")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrWindowNotFound         = errors.New("maintenance window not found")
	ErrInvalidRange           = errors.New("invalid date range")
	ErrInvalidState           = errors.New("booking is not in the required state")
	ErrRoomNotBookable        = errors.New("room is not bookable")
	ErrMaintenanceConflict    = errors.New("room has maintenance scheduled for the requested range")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// RoomUnavailableError reports a date-range conflict with an existing booking.
type RoomUnavailableError struct {
	RoomID    int64
	BookingID int64
	StartDate time.Time
	EndDate   time.Time
}

func (e *RoomUnavailableError) Error() string {
	return fmt.Sprintf("room %d unavailable: conflicts with booking %d (%s to %s)",
		e.RoomID, e.BookingID,
		e.StartDate.Format("2006-01-02"), e.EndDate.Format("2006-01-02"))
}

// IsUnavailable reports whether err is a range-conflict error.
func IsUnavailable(err error) bool {
	var ue *RoomUnavailableError
	return errors.As(err, &ue)
}
