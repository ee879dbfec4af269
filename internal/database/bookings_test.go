package database

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestRoom(t *testing.T, db *DB, number string) *models.Room {
	room := &models.Room{
		RoomNumber: number,
		RoomType:   "standard",
		Floor:      1,
		Price:      50,
	}
	require.NoError(t, db.CreateRoom(context.Background(), room))
	return room
}

func day(offset int) time.Time {
	return time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func addCart(t *testing.T, db *DB, roomID, customerID int64, start, end time.Time) *models.Booking {
	booking := &models.Booking{
		RoomID:     roomID,
		CustomerID: customerID,
		StartDate:  start,
		EndDate:    end,
	}
	require.NoError(t, db.AddToCart(context.Background(), booking))
	return booking
}

func TestAddToCartOverlap(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "101")

	// June 1 - June 3
	first := addCart(t, db, room.ID, 1, day(0), day(2))

	// June 2 - June 4 intersects the existing stay
	conflicting := &models.Booking{
		RoomID:     room.ID,
		CustomerID: 2,
		StartDate:  day(1),
		EndDate:    day(3),
	}
	err := db.AddToCart(ctx, conflicting)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))

	var unavailable *RoomUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, first.ID, unavailable.BookingID)
	assert.Equal(t, room.ID, unavailable.RoomID)

	// June 3 - June 5 touches the end point; half-open ranges do not conflict
	touching := &models.Booking{
		RoomID:     room.ID,
		CustomerID: 2,
		StartDate:  day(2),
		EndDate:    day(4),
	}
	assert.NoError(t, db.AddToCart(ctx, touching))
}

func TestAddToCartValidation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "101")

	err := db.AddToCart(ctx, &models.Booking{
		RoomID:     room.ID,
		CustomerID: 1,
		StartDate:  day(2),
		EndDate:    day(2),
	})
	assert.ErrorIs(t, err, ErrInvalidRange)

	err = db.AddToCart(ctx, &models.Booking{
		RoomID:     99999,
		CustomerID: 1,
		StartDate:  day(0),
		EndDate:    day(2),
	})
	assert.ErrorIs(t, err, ErrRoomNotFound)

	require.NoError(t, db.SetRoomSystemStatus(ctx, room.ID, models.SystemMaintenance))
	err = db.AddToCart(ctx, &models.Booking{
		RoomID:     room.ID,
		CustomerID: 1,
		StartDate:  day(0),
		EndDate:    day(2),
	})
	assert.ErrorIs(t, err, ErrRoomNotBookable)
}

func TestAddToCartMaintenanceConflict(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "101")

	window := &models.MaintenanceWindow{
		RoomID:    room.ID,
		StartDate: day(1),
		EndDate:   day(3),
		Reason:    "boiler inspection",
	}
	require.NoError(t, db.CreateMaintenanceWindow(ctx, window))

	err := db.AddToCart(ctx, &models.Booking{
		RoomID:     room.ID,
		CustomerID: 1,
		StartDate:  day(0),
		EndDate:    day(2),
	})
	assert.ErrorIs(t, err, ErrMaintenanceConflict)

	// The range before the window is fine
	assert.NoError(t, db.AddToCart(ctx, &models.Booking{
		RoomID:     room.ID,
		CustomerID: 1,
		StartDate:  day(0),
		EndDate:    day(1),
	}))
}

func TestCartOperations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	roomA := createTestRoom(t, db, "101")
	roomB := createTestRoom(t, db, "102")

	first := addCart(t, db, roomA.ID, 7, day(0), day(2))
	second := addCart(t, db, roomB.ID, 7, day(0), day(3))

	cart, err := db.GetCart(ctx, 7)
	require.NoError(t, err)
	require.Len(t, cart, 2)

	require.NoError(t, db.RemoveFromCart(ctx, 7, first.ID))
	cart, err = db.GetCart(ctx, 7)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, second.ID, cart[0].ID)

	// Removing again reports the row as gone
	err = db.RemoveFromCart(ctx, 7, first.ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	removed, err := db.ClearCart(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestCheckoutCart(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	roomA := createTestRoom(t, db, "101")
	roomB := createTestRoom(t, db, "102")

	addCart(t, db, roomA.ID, 7, day(0), day(2))
	addCart(t, db, roomB.ID, 7, day(0), day(3))

	bookings, err := db.CheckoutCart(ctx, 7, uuid.NewString)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	for _, b := range bookings {
		assert.Equal(t, models.BookingPending, b.Status)
		assert.NotEmpty(t, b.Reference)
		assert.Equal(t, int64(2), b.Version)
	}

	// Empty cart afterwards
	_, err = db.CheckoutCart(ctx, 7, uuid.NewString)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutCartAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	roomA := createTestRoom(t, db, "101")
	roomB := createTestRoom(t, db, "102")

	addCart(t, db, roomA.ID, 7, day(0), day(2))
	addCart(t, db, roomB.ID, 7, day(0), day(3))

	// Force a direct conflict: customer 7 holds two overlapping stays on room A.
	// The overlap check excludes only the row being promoted, so the batch
	// cannot commit.
	conflicted := &models.Booking{
		RoomID:     roomA.ID,
		CustomerID: 7,
		StartDate:  day(2),
		EndDate:    day(4),
	}
	require.NoError(t, db.AddToCart(ctx, conflicted))
	_, err := db.ExecContext(ctx,
		`UPDATE bookings SET start_date = ?, end_date = ? WHERE id = ?`,
		day(1).UTC(), day(4).UTC(), conflicted.ID)
	require.NoError(t, err)

	_, err = db.CheckoutCart(ctx, 7, uuid.NewString)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))

	// Nothing was promoted
	cart, err := db.GetCart(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, cart, 3)
	pending, err := db.ListBookingsByStatus(ctx, models.BookingPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTransitionBookingGuards(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "101")
	booking := addCart(t, db, room.ID, 1, day(0), day(2))

	require.NoError(t, db.TransitionBooking(ctx, booking.ID, models.BookingCart, models.BookingPending))

	// Same transition again fails: the row left CART already
	err := db.TransitionBooking(ctx, booking.ID, models.BookingCart, models.BookingPending)
	assert.ErrorIs(t, err, ErrInvalidState)

	err = db.TransitionBooking(ctx, 99999, models.BookingCart, models.BookingPending)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestCheckInCheckOutTimestamps(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "101")
	booking := addCart(t, db, room.ID, 1, day(0), day(2))

	require.NoError(t, db.TransitionBooking(ctx, booking.ID, models.BookingCart, models.BookingPending))
	require.NoError(t, db.TransitionBooking(ctx, booking.ID, models.BookingPending, models.BookingReserved))
	require.NoError(t, db.TransitionBooking(ctx, booking.ID, models.BookingReserved, models.BookingCheckingIn))
	require.NoError(t, db.TransitionBooking(ctx, booking.ID, models.BookingCheckingIn, models.BookingCustomerConfirm))

	now := time.Now()
	require.NoError(t, db.TransitionBookingAndRoom(ctx, booking.ID, models.BookingCustomerConfirm, models.BookingOccupied, models.RoomOccupied, &now))

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingOccupied, got.Status)
	require.NotNil(t, got.CheckedInAt)
	assert.WithinDuration(t, now, *got.CheckedInAt, 2*time.Second)

	// Wrong source state is rejected
	err = db.MarkCheckedOut(ctx, booking.ID, models.BookingCheckingOut, now)
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, db.TransitionBooking(ctx, booking.ID, models.BookingOccupied, models.BookingNeedCheckout))
	require.NoError(t, db.TransitionBooking(ctx, booking.ID, models.BookingNeedCheckout, models.BookingCheckingOut))
	require.NoError(t, db.MarkCheckedOut(ctx, booking.ID, models.BookingCheckingOut, now))

	got, err = db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCheckedOut, got.Status)
	require.NotNil(t, got.CheckedOutAt)
}

func TestTransitionBookingAndRoomAtomic(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "101")
	booking := addCart(t, db, room.ID, 1, day(0), day(2))

	require.NoError(t, db.TransitionBooking(ctx, booking.ID, models.BookingCart, models.BookingPending))
	require.NoError(t, db.TransitionBooking(ctx, booking.ID, models.BookingPending, models.BookingReserved))
	require.NoError(t, db.TransitionBooking(ctx, booking.ID, models.BookingReserved, models.BookingCheckingIn))

	// Wrong source state: neither row moves
	err := db.TransitionBookingAndRoom(ctx, booking.ID, models.BookingCustomerConfirm, models.BookingOccupied, models.RoomOccupied, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
	gotRoom, err := db.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomAvailable, gotRoom.Status)

	require.NoError(t, db.TransitionBooking(ctx, booking.ID, models.BookingCheckingIn, models.BookingCustomerConfirm))

	// Failed room write rolls the booking back too
	_, err = db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, room.ID)
	require.NoError(t, err)
	now := time.Now()
	err = db.TransitionBookingAndRoom(ctx, booking.ID, models.BookingCustomerConfirm, models.BookingOccupied, models.RoomOccupied, &now)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCustomerConfirm, got.Status)
	assert.Nil(t, got.CheckedInAt)

	err = db.TransitionBookingAndRoom(ctx, 99999, models.BookingCustomerConfirm, models.BookingOccupied, models.RoomOccupied, nil)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestExpiredCarts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "101")

	stale := addCart(t, db, room.ID, 1, day(0), day(2))
	fresh := addCart(t, db, room.ID, 2, day(4), day(6))

	// Age the first row past the TTL
	_, err := db.ExecContext(ctx, `UPDATE bookings SET created_at = ? WHERE id = ?`,
		time.Now().Add(-30*time.Minute).UTC(), stale.ID)
	require.NoError(t, err)

	cutoff := time.Now().Add(-15 * time.Minute)
	expired, err := db.ExpiredCarts(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)

	deleted, err := db.DeleteCartIfExpired(ctx, stale.ID, cutoff)
	require.NoError(t, err)
	assert.True(t, deleted)

	// A fresh cart row is never deleted by the sweep
	deleted, err = db.DeleteCartIfExpired(ctx, fresh.ID, cutoff)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = db.GetBooking(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestNextAvailableDate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "101")

	_, busy, err := db.NextAvailableDate(ctx, room.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, busy)

	addCart(t, db, room.ID, 1, day(0), day(2))
	addCart(t, db, room.ID, 1, day(2), day(5))

	next, busy, err := db.NextAvailableDate(ctx, room.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, busy)
	assert.WithinDuration(t, day(5), next, time.Second)
}

func TestUpcomingBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "101")

	later := addCart(t, db, room.ID, 1, day(5), day(7))
	sooner := addCart(t, db, room.ID, 2, day(0), day(2))

	upcoming, err := db.UpcomingBookings(ctx, room.ID, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, sooner.ID, upcoming[0].ID)
	assert.Equal(t, later.ID, upcoming[1].ID)

	upcoming, err = db.UpcomingBookings(ctx, room.ID, time.Now(), 1)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, sooner.ID, upcoming[0].ID)
}

func TestGetBookingByReference(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "101")
	addCart(t, db, room.ID, 1, day(0), day(2))

	bookings, err := db.CheckoutCart(ctx, 1, uuid.NewString)
	require.NoError(t, err)
	require.Len(t, bookings, 1)

	got, err := db.GetBookingByReference(ctx, bookings[0].Reference)
	require.NoError(t, err)
	assert.Equal(t, bookings[0].ID, got.ID)

	_, err = db.GetBookingByReference(ctx, "no-such-reference")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestRandomSequencesNeverOverlap(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "101")

	rng := rand.New(rand.NewSource(1))

	var accepted []*models.Booking
	for i := 0; i < 200; i++ {
		start := day(rng.Intn(60))
		end := start.AddDate(0, 0, 1+rng.Intn(7))

		booking := &models.Booking{
			RoomID:     room.ID,
			CustomerID: int64(1 + rng.Intn(10)),
			StartDate:  start,
			EndDate:    end,
		}
		err := db.AddToCart(ctx, booking)
		if err != nil {
			require.True(t, IsUnavailable(err), "unexpected error: %v", err)
			continue
		}
		accepted = append(accepted, booking)

		// Occasionally retire a booking and free its range
		if rng.Intn(4) == 0 && len(accepted) > 0 {
			idx := rng.Intn(len(accepted))
			victim := accepted[idx]
			require.NoError(t, db.TransitionBooking(ctx, victim.ID, models.BookingCart, models.BookingCancelled))
			accepted = append(accepted[:idx], accepted[idx+1:]...)
		}
	}

	require.NotEmpty(t, accepted)
	for i := 0; i < len(accepted); i++ {
		for j := i + 1; j < len(accepted); j++ {
			a, b := accepted[i], accepted[j]
			assert.False(t, a.Overlaps(b.StartDate, b.EndDate), "bookings %d and %d overlap", a.ID, b.ID)
		}
	}
}
