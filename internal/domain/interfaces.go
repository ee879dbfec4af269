package domain

import (
	"context"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/models"
)

type Store interface {
	// Rooms
	CreateRoom(ctx context.Context, room *models.Room) error
	UpsertRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	GetRoomByNumber(ctx context.Context, number string) (*models.Room, error)
	ListRooms(ctx context.Context) ([]*models.Room, error)
	ListRoomsByStatus(ctx context.Context, status models.RoomStatus) ([]*models.Room, error)
	SetRoomStatus(ctx context.Context, id int64, status models.RoomStatus) error
	SetRoomStatusIf(ctx context.Context, id int64, from, to models.RoomStatus) error
	SetRoomSystemStatus(ctx context.Context, id int64, status models.RoomSystemStatus) error

	// Cart and bookings
	AddToCart(ctx context.Context, booking *models.Booking) error
	GetCart(ctx context.Context, customerID int64) ([]*models.Booking, error)
	RemoveFromCart(ctx context.Context, customerID, bookingID int64) error
	ClearCart(ctx context.Context, customerID int64) (int64, error)
	CheckoutCart(ctx context.Context, customerID int64, newReference func() string) ([]*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	TransitionBooking(ctx context.Context, id int64, from, to models.BookingStatus) error
	TransitionBookingAndRoom(ctx context.Context, id int64, from, to models.BookingStatus, roomStatus models.RoomStatus, checkedInAt *time.Time) error
	MarkCheckedOut(ctx context.Context, id int64, from models.BookingStatus, at time.Time) error
	SetInspection(ctx context.Context, id int64, note string, hasDamage bool) error
	ListBookingsByCustomer(ctx context.Context, customerID int64) ([]*models.Booking, error)
	ListBookingsByStatus(ctx context.Context, status models.BookingStatus) ([]*models.Booking, error)
	CountBookingsInStatuses(ctx context.Context, roomID int64, statuses ...models.BookingStatus) (int, error)

	// Availability
	FindConflict(ctx context.Context, roomID int64, start, end time.Time, excludeID int64) (*models.Booking, error)
	UpcomingBookings(ctx context.Context, roomID int64, from time.Time, limit int) ([]*models.Booking, error)
	NextAvailableDate(ctx context.Context, roomID int64, from time.Time) (time.Time, bool, error)

	// Cart expiry
	ExpiredCarts(ctx context.Context, cutoff time.Time) ([]*models.Booking, error)
	DeleteCartIfExpired(ctx context.Context, id int64, cutoff time.Time) (bool, error)

	// Maintenance
	CreateMaintenanceWindow(ctx context.Context, window *models.MaintenanceWindow) error
	GetMaintenanceWindow(ctx context.Context, id int64) (*models.MaintenanceWindow, error)
	ListMaintenanceWindows(ctx context.Context, roomID int64) ([]*models.MaintenanceWindow, error)
	DueScheduledWindows(ctx context.Context, at time.Time) ([]*models.MaintenanceWindow, error)
	ExpiredActiveWindows(ctx context.Context, at time.Time) ([]*models.MaintenanceWindow, error)
	TransitionWindow(ctx context.Context, id int64, from, to models.MaintenanceStatus) error
	HasActiveWindow(ctx context.Context, roomID int64, at time.Time) (bool, error)
	OverlappingWindow(ctx context.Context, roomID int64, start, end time.Time) (*models.MaintenanceWindow, error)
}

// AvailabilityCache caches per-room availability answers with a short TTL.
type AvailabilityCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Invalidate(ctx context.Context, roomID int64) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
