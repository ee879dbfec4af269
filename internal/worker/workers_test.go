package worker

import (
	"context"
	"testing"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/database"
	"github.com/KhanhKube/hotel-management-sub000/internal/models"
	"github.com/KhanhKube/hotel-management-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWorkerDB(t *testing.T) *database.DB {
	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func workerRoom(t *testing.T, db *database.DB, number string) *models.Room {
	room := &models.Room{RoomNumber: number, RoomType: "standard", Floor: 1, Price: 50}
	require.NoError(t, db.CreateRoom(context.Background(), room))
	return room
}

func cartRow(t *testing.T, db *database.DB, roomID, customerID int64, offsetDays int) *models.Booking {
	start := time.Now().AddDate(0, 0, 10+offsetDays).Truncate(24 * time.Hour)
	booking := &models.Booking{
		RoomID:     roomID,
		CustomerID: customerID,
		StartDate:  start,
		EndDate:    start.AddDate(0, 0, 2),
	}
	require.NoError(t, db.AddToCart(context.Background(), booking))
	return booking
}

func ageCart(t *testing.T, db *database.DB, id int64, age time.Duration) {
	_, err := db.ExecContext(context.Background(),
		`UPDATE bookings SET created_at = ? WHERE id = ?`,
		time.Now().Add(-age).UTC(), id)
	require.NoError(t, err)
}

func TestCartExpirySweep(t *testing.T) {
	db := setupWorkerDB(t)
	ctx := context.Background()
	logger := zerolog.Nop()
	room := workerRoom(t, db, "101")

	stale := cartRow(t, db, room.ID, 1, 0)
	fresh := cartRow(t, db, room.ID, 2, 5)
	promoted := cartRow(t, db, room.ID, 3, 10)

	ageCart(t, db, stale.ID, 30*time.Minute)
	ageCart(t, db, promoted.ID, 30*time.Minute)

	// The aged row that got checked out must survive the sweep
	_, err := db.CheckoutCart(ctx, 3, uuid.NewString)
	require.NoError(t, err)

	w := NewCartExpiryWorker(db, repository.NewMemoryAvailabilityCache(), 15*time.Minute, time.Minute, &logger)
	w.RunOnce(ctx)

	_, err = db.GetBooking(ctx, stale.ID)
	assert.ErrorIs(t, err, database.ErrBookingNotFound)

	got, err := db.GetBooking(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCart, got.Status)

	got, err = db.GetBooking(ctx, promoted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, got.Status)
}

func TestCartExpirySweepIdempotent(t *testing.T) {
	db := setupWorkerDB(t)
	ctx := context.Background()
	logger := zerolog.Nop()
	room := workerRoom(t, db, "101")

	stale := cartRow(t, db, room.ID, 1, 0)
	ageCart(t, db, stale.ID, 30*time.Minute)

	w := NewCartExpiryWorker(db, nil, 15*time.Minute, time.Minute, &logger)
	w.RunOnce(ctx)
	w.RunOnce(ctx)

	carts, err := db.ExpiredCarts(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, carts)
}

func TestMaintenanceSweepActivatesAndCompletes(t *testing.T) {
	db := setupWorkerDB(t)
	ctx := context.Background()
	logger := zerolog.Nop()
	roomA := workerRoom(t, db, "101")
	roomB := workerRoom(t, db, "102")

	due := &models.MaintenanceWindow{
		RoomID:    roomA.ID,
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, db.CreateMaintenanceWindow(ctx, due))

	finished := &models.MaintenanceWindow{
		RoomID:    roomB.ID,
		StartDate: time.Now().Add(-48 * time.Hour),
		EndDate:   time.Now().Add(-time.Hour),
		Status:    models.MaintenanceActive,
	}
	require.NoError(t, db.CreateMaintenanceWindow(ctx, finished))
	require.NoError(t, db.SetRoomStatus(ctx, roomB.ID, models.RoomMaintenance))

	w := NewMaintenanceSweepWorker(db, repository.NewMemoryAvailabilityCache(), 14, &logger)
	w.RunOnce(ctx)

	gotDue, err := db.GetMaintenanceWindow(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceActive, gotDue.Status)
	gotRoomA, err := db.GetRoom(ctx, roomA.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomMaintenance, gotRoomA.Status)
	assert.Equal(t, models.SystemMaintenance, gotRoomA.SystemStatus)

	gotFinished, err := db.GetMaintenanceWindow(ctx, finished.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceCompleted, gotFinished.Status)
	gotRoomB, err := db.GetRoom(ctx, roomB.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomAvailable, gotRoomB.Status)
}

func TestMaintenanceSweepKeepsRoomWithSecondWindow(t *testing.T) {
	db := setupWorkerDB(t)
	ctx := context.Background()
	logger := zerolog.Nop()
	room := workerRoom(t, db, "101")

	expired := &models.MaintenanceWindow{
		RoomID:    room.ID,
		StartDate: time.Now().Add(-48 * time.Hour),
		EndDate:   time.Now().Add(-time.Hour),
		Status:    models.MaintenanceActive,
	}
	stillOpen := &models.MaintenanceWindow{
		RoomID:    room.ID,
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(24 * time.Hour),
		Status:    models.MaintenanceActive,
	}
	require.NoError(t, db.CreateMaintenanceWindow(ctx, expired))
	require.NoError(t, db.CreateMaintenanceWindow(ctx, stillOpen))
	require.NoError(t, db.SetRoomStatus(ctx, room.ID, models.RoomMaintenance))

	w := NewMaintenanceSweepWorker(db, nil, 14, &logger)
	w.RunOnce(ctx)

	got, err := db.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomMaintenance, got.Status)
}

func TestMaintenanceSweepRestoresSystemStatus(t *testing.T) {
	db := setupWorkerDB(t)
	ctx := context.Background()
	logger := zerolog.Nop()
	room := workerRoom(t, db, "101")

	window := &models.MaintenanceWindow{
		RoomID:    room.ID,
		StartDate: time.Now().Add(-48 * time.Hour),
		EndDate:   time.Now().Add(-time.Hour),
		Status:    models.MaintenanceActive,
	}
	require.NoError(t, db.CreateMaintenanceWindow(ctx, window))
	require.NoError(t, db.SetRoomStatus(ctx, room.ID, models.RoomMaintenance))
	require.NoError(t, db.SetRoomSystemStatus(ctx, room.ID, models.SystemMaintenance))

	w := NewMaintenanceSweepWorker(db, nil, 14, &logger)
	w.RunOnce(ctx)

	got, err := db.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SystemWorking, got.SystemStatus)
	assert.Equal(t, models.RoomAvailable, got.Status)

	// STOP_WORKING is an admin decision the sweep must not lift
	room2 := workerRoom(t, db, "102")
	window2 := &models.MaintenanceWindow{
		RoomID:    room2.ID,
		StartDate: time.Now().Add(-48 * time.Hour),
		EndDate:   time.Now().Add(-time.Hour),
		Status:    models.MaintenanceActive,
	}
	require.NoError(t, db.CreateMaintenanceWindow(ctx, window2))
	require.NoError(t, db.SetRoomStatus(ctx, room2.ID, models.RoomMaintenance))
	require.NoError(t, db.SetRoomSystemStatus(ctx, room2.ID, models.SystemStopWorking))

	w.RunOnce(ctx)

	got, err = db.GetRoom(ctx, room2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SystemStopWorking, got.SystemStatus)
	assert.Equal(t, models.RoomMaintenance, got.Status)
}

func TestMaintenanceSweepOneActiveWindowPerRoom(t *testing.T) {
	db := setupWorkerDB(t)
	ctx := context.Background()
	logger := zerolog.Nop()
	room := workerRoom(t, db, "101")

	first := &models.MaintenanceWindow{
		RoomID:    room.ID,
		StartDate: time.Now().Add(-2 * time.Hour),
		EndDate:   time.Now().Add(24 * time.Hour),
	}
	second := &models.MaintenanceWindow{
		RoomID:    room.ID,
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(48 * time.Hour),
	}
	require.NoError(t, db.CreateMaintenanceWindow(ctx, first))
	require.NoError(t, db.CreateMaintenanceWindow(ctx, second))

	w := NewMaintenanceSweepWorker(db, nil, 14, &logger)
	w.RunOnce(ctx)

	gotFirst, err := db.GetMaintenanceWindow(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceActive, gotFirst.Status)

	// The second window waits its turn in SCHEDULED
	gotSecond, err := db.GetMaintenanceWindow(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceScheduled, gotSecond.Status)

	// Re-running changes nothing while the first window is still open
	w.RunOnce(ctx)
	gotSecond, err = db.GetMaintenanceWindow(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceScheduled, gotSecond.Status)
}

func TestMaintenanceSweepClosesElapsedScheduledWindow(t *testing.T) {
	db := setupWorkerDB(t)
	ctx := context.Background()
	logger := zerolog.Nop()
	room := workerRoom(t, db, "101")

	missed := &models.MaintenanceWindow{
		RoomID:    room.ID,
		StartDate: time.Now().Add(-72 * time.Hour),
		EndDate:   time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, db.CreateMaintenanceWindow(ctx, missed))

	w := NewMaintenanceSweepWorker(db, nil, 14, &logger)
	w.RunOnce(ctx)

	got, err := db.GetMaintenanceWindow(ctx, missed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceCompleted, got.Status)

	// The room was never pulled out of service for a range in the past
	gotRoom, err := db.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomAvailable, gotRoom.Status)
	assert.Equal(t, models.SystemWorking, gotRoom.SystemStatus)
}

func TestCleaningReleaseSweep(t *testing.T) {
	db := setupWorkerDB(t)
	ctx := context.Background()
	logger := zerolog.Nop()

	staleRoom := workerRoom(t, db, "101")
	busyRoom := workerRoom(t, db, "102")
	maintRoom := workerRoom(t, db, "103")

	require.NoError(t, db.SetRoomStatus(ctx, staleRoom.ID, models.RoomCleaning))
	require.NoError(t, db.SetRoomStatus(ctx, busyRoom.ID, models.RoomCleaning))
	require.NoError(t, db.SetRoomStatus(ctx, maintRoom.ID, models.RoomCleaning))
	require.NoError(t, db.SetRoomSystemStatus(ctx, maintRoom.ID, models.SystemMaintenance))

	// busyRoom has a booking still waiting on cleaning
	booking := cartRow(t, db, busyRoom.ID, 1, 0)
	for _, step := range [][2]models.BookingStatus{
		{models.BookingCart, models.BookingPending},
		{models.BookingPending, models.BookingReserved},
		{models.BookingReserved, models.BookingCheckingIn},
		{models.BookingCheckingIn, models.BookingCustomerConfirm},
		{models.BookingCustomerConfirm, models.BookingOccupied},
		{models.BookingOccupied, models.BookingNeedCheckout},
		{models.BookingNeedCheckout, models.BookingCheckingOut},
		{models.BookingCheckingOut, models.BookingCheckedOut},
		{models.BookingCheckedOut, models.BookingNeedClean},
	} {
		require.NoError(t, db.TransitionBooking(ctx, booking.ID, step[0], step[1]))
	}

	w := NewCleaningReleaseWorker(db, repository.NewMemoryAvailabilityCache(), 14, &logger)
	w.RunOnce(ctx)

	got, err := db.GetRoom(ctx, staleRoom.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomAvailable, got.Status)

	got, err = db.GetRoom(ctx, busyRoom.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomCleaning, got.Status)

	got, err = db.GetRoom(ctx, maintRoom.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomCleaning, got.Status)
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{MaxAttempts: 5, Base: time.Second, Cap: 10 * time.Second}

	assert.Equal(t, time.Second, b.Delay(1))
	assert.Equal(t, 2*time.Second, b.Delay(2))
	assert.Equal(t, 4*time.Second, b.Delay(3))
	assert.Equal(t, 10*time.Second, b.Delay(10))
	assert.Equal(t, time.Second, b.Delay(0))

	assert.Equal(t, 6*time.Second, Backoff{Base: 3 * time.Second}.Delay(2))
}
