package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/models"
)

const bookingColumns = `id, reference, room_id, customer_id, start_date, end_date, status,
	amount, note, inspection_note, has_damage, checked_in_at, checked_out_at,
	is_deleted, created_at, updated_at, version`

// releasedStatuses lists the terminal states that no longer hold a room's
// date range. Overlap queries exclude them with NOT IN, so every other state,
// CART rows included, keeps the range held.
const releasedStatuses = `('CANCELLED', 'COMPLETED')`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var reference, note, inspectionNote sql.NullString
	var checkedIn, checkedOut sql.NullTime
	err := row.Scan(
		&b.ID, &reference, &b.RoomID, &b.CustomerID, &b.StartDate, &b.EndDate, &b.Status,
		&b.Amount, &note, &inspectionNote, &b.HasDamage, &checkedIn, &checkedOut,
		&b.IsDeleted, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.Reference = reference.String
	b.Note = note.String
	b.InspectionNote = inspectionNote.String
	if checkedIn.Valid {
		t := checkedIn.Time
		b.CheckedInAt = &t
	}
	if checkedOut.Valid {
		t := checkedOut.Time
		b.CheckedOutAt = &t
	}
	return &b, nil
}

// findConflict returns the first booking that holds any part of
// [start, end) for the room, or nil when the range is free. Ranges are
// half-open, so a stay ending exactly when another starts does not conflict.
func findConflict(ctx context.Context, q querier, roomID int64, start, end time.Time, excludeID int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE room_id = ? AND id != ? AND is_deleted = 0
              AND status NOT IN ` + releasedStatuses + `
              AND start_date < ? AND end_date > ?
              ORDER BY start_date ASC LIMIT 1`
	b, err := scanBooking(q.QueryRowContext(ctx, query, roomID, excludeID, end.UTC(), start.UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check range conflict: %w", err)
	}
	return b, nil
}

// FindConflict checks [start, end) against all holding bookings for the room.
func (db *DB) FindConflict(ctx context.Context, roomID int64, start, end time.Time, excludeID int64) (*models.Booking, error) {
	return findConflict(ctx, db.DB, roomID, start, end, excludeID)
}

// AddToCart validates the room and range inside one transaction and inserts
// a CART row. A conflicting booking is reported via RoomUnavailableError.
func (db *DB) AddToCart(ctx context.Context, booking *models.Booking) error {
	if !booking.StartDate.Before(booking.EndDate) {
		return ErrInvalidRange
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var systemStatus models.RoomSystemStatus
	err = tx.QueryRowContext(ctx, `SELECT system_status FROM rooms WHERE id = ?`, booking.RoomID).Scan(&systemStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to load room in tx: %w", err)
	}
	if systemStatus == models.SystemMaintenance || systemStatus == models.SystemStopWorking {
		return ErrRoomNotBookable
	}

	var windows int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM maintenance_windows
         WHERE room_id = ? AND status IN ('SCHEDULED', 'ACTIVE')
         AND start_date < ? AND end_date > ?`,
		booking.RoomID, booking.EndDate.UTC(), booking.StartDate.UTC()).Scan(&windows)
	if err != nil {
		return fmt.Errorf("failed to check maintenance windows in tx: %w", err)
	}
	if windows > 0 {
		return ErrMaintenanceConflict
	}

	conflict, err := findConflict(ctx, tx, booking.RoomID, booking.StartDate, booking.EndDate, 0)
	if err != nil {
		return err
	}
	if conflict != nil {
		return &RoomUnavailableError{
			RoomID:    booking.RoomID,
			BookingID: conflict.ID,
			StartDate: conflict.StartDate,
			EndDate:   conflict.EndDate,
		}
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (room_id, customer_id, start_date, end_date, status, amount, note,
                               has_damage, is_deleted, created_at, updated_at, version)
         VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?, 1)`,
		booking.RoomID, booking.CustomerID,
		booking.StartDate.UTC(), booking.EndDate.UTC(),
		models.BookingCart, booking.Amount, booking.Note, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert cart row in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.Status = models.BookingCart
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	return tx.Commit()
}

func (db *DB) GetCart(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE customer_id = ? AND status = ? AND is_deleted = 0
              ORDER BY created_at ASC, id ASC`
	return db.queryBookings(ctx, query, customerID, models.BookingCart)
}

func (db *DB) RemoveFromCart(ctx context.Context, customerID, bookingID int64) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM bookings WHERE id = ? AND customer_id = ? AND status = ?`,
		bookingID, customerID, models.BookingCart)
	if err != nil {
		return fmt.Errorf("failed to remove cart row: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := db.GetBooking(ctx, bookingID); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

func (db *DB) ClearCart(ctx context.Context, customerID int64) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM bookings WHERE customer_id = ? AND status = ?`,
		customerID, models.BookingCart)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// CheckoutCart promotes every CART row of the customer to PENDING in a single
// transaction. Each row is re-validated against holding bookings before its
// guarded update; any conflict or concurrent change aborts the whole batch.
func (db *DB) CheckoutCart(ctx context.Context, customerID int64, newReference func() string) ([]*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE customer_id = ? AND status = ? AND is_deleted = 0
              ORDER BY id ASC`
	rows, err := tx.QueryContext(ctx, query, customerID, models.BookingCart)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart in tx: %w", err)
	}

	var cart []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan cart row: %w", err)
		}
		cart = append(cart, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read cart rows: %w", err)
	}
	rows.Close()

	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	now := time.Now().UTC()
	for _, b := range cart {
		conflict, err := findConflict(ctx, tx, b.RoomID, b.StartDate, b.EndDate, b.ID)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			return nil, &RoomUnavailableError{
				RoomID:    b.RoomID,
				BookingID: conflict.ID,
				StartDate: conflict.StartDate,
				EndDate:   conflict.EndDate,
			}
		}

		reference := newReference()
		result, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, reference = ?, version = version + 1, updated_at = ?
             WHERE id = ? AND status = ?`,
			models.BookingPending, reference, now, b.ID, models.BookingCart)
		if err != nil {
			return nil, fmt.Errorf("failed to promote cart row in tx: %w", err)
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return nil, ErrConcurrentModification
		}

		b.Status = models.BookingPending
		b.Reference = reference
		b.Version++
		b.UpdatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit checkout: %w", err)
	}
	return cart, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (db *DB) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking by reference: %w", err)
	}
	return b, nil
}

// TransitionBooking performs a status-guarded update. A zero-row result means
// the booking either vanished or is no longer in the expected state.
func (db *DB) TransitionBooking(ctx context.Context, id int64, from, to models.BookingStatus) error {
	result, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
         WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("failed to transition booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := db.GetBooking(ctx, id); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// TransitionBookingAndRoom applies a guarded booking status change together
// with the paired room status change in one transaction. A non-nil checkedInAt
// is stamped in the same update. Neither row moves unless both writes land.
func (db *DB) TransitionBookingAndRoom(ctx context.Context, id int64, from, to models.BookingStatus, roomStatus models.RoomStatus, checkedInAt *time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	var result sql.Result
	if checkedInAt != nil {
		result, err = tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, checked_in_at = ?, version = version + 1, updated_at = ?
             WHERE id = ? AND status = ?`,
			to, checkedInAt.UTC(), now, id, from)
	} else {
		result, err = tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
             WHERE id = ? AND status = ?`,
			to, now, id, from)
	}
	if err != nil {
		return fmt.Errorf("failed to transition booking in tx: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var current models.BookingStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read booking in tx: %w", err)
		}
		return ErrInvalidState
	}

	roomResult, err := tx.ExecContext(ctx,
		`UPDATE rooms SET status = ?, updated_at = ?
         WHERE id = (SELECT room_id FROM bookings WHERE id = ?)`,
		roomStatus, now, id)
	if err != nil {
		return fmt.Errorf("failed to set room status in tx: %w", err)
	}
	if rows, _ := roomResult.RowsAffected(); rows == 0 {
		return ErrRoomNotFound
	}

	return tx.Commit()
}

// MarkCheckedOut records the check-out timestamp together with the guarded
// status move into CHECKED_OUT.
func (db *DB) MarkCheckedOut(ctx context.Context, id int64, from models.BookingStatus, at time.Time) error {
	result, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, checked_out_at = ?, version = version + 1, updated_at = ?
         WHERE id = ? AND status = ?`,
		models.BookingCheckedOut, at.UTC(), time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("failed to mark booking checked out: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := db.GetBooking(ctx, id); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// SetInspection stores the staff inspection result on a booking awaiting
// checkout finalization.
func (db *DB) SetInspection(ctx context.Context, id int64, note string, hasDamage bool) error {
	result, err := db.ExecContext(ctx,
		`UPDATE bookings SET inspection_note = ?, has_damage = ?, version = version + 1, updated_at = ?
         WHERE id = ?`,
		note, hasDamage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set inspection: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (db *DB) ListBookingsByCustomer(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE customer_id = ? AND is_deleted = 0
              ORDER BY start_date DESC, id DESC`
	return db.queryBookings(ctx, query, customerID)
}

func (db *DB) ListBookingsByStatus(ctx context.Context, status models.BookingStatus) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE status = ? AND is_deleted = 0
              ORDER BY start_date ASC, id ASC`
	return db.queryBookings(ctx, query, status)
}

// UpcomingBookings lists holding bookings for a room that end after the given
// moment, soonest first.
func (db *DB) UpcomingBookings(ctx context.Context, roomID int64, from time.Time, limit int) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE room_id = ? AND is_deleted = 0
              AND status NOT IN ` + releasedStatuses + `
              AND end_date > ?
              ORDER BY start_date ASC LIMIT ?`
	return db.queryBookings(ctx, query, roomID, from.UTC(), limit)
}

// NextAvailableDate returns the moment the room frees up: the latest end date
// among holding bookings that are still open at or after the given time. The
// second result is false when the room is already free.
func (db *DB) NextAvailableDate(ctx context.Context, roomID int64, from time.Time) (time.Time, bool, error) {
	var end sql.NullTime
	err := db.QueryRowContext(ctx,
		`SELECT MAX(end_date) FROM bookings
         WHERE room_id = ? AND is_deleted = 0
         AND status NOT IN `+releasedStatuses+`
         AND end_date > ?`,
		roomID, from.UTC()).Scan(&end)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get next available date: %w", err)
	}
	if !end.Valid {
		return time.Time{}, false, nil
	}
	return end.Time, true, nil
}

// ExpiredCarts lists CART rows created at or before the cutoff.
func (db *DB) ExpiredCarts(ctx context.Context, cutoff time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE status = ? AND created_at <= ?
              ORDER BY created_at ASC`
	return db.queryBookings(ctx, query, models.BookingCart, cutoff.UTC())
}

// DeleteCartIfExpired removes a single cart row, guarded so a row that was
// checked out between the sweep's read and this delete survives.
func (db *DB) DeleteCartIfExpired(ctx context.Context, id int64, cutoff time.Time) (bool, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM bookings WHERE id = ? AND status = ? AND created_at <= ?`,
		id, models.BookingCart, cutoff.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to delete expired cart row: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// CountBookingsInStatuses counts non-deleted bookings for a room in any of
// the given states.
func (db *DB) CountBookingsInStatuses(ctx context.Context, roomID int64, statuses ...models.BookingStatus) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	args := make([]interface{}, 0, len(statuses)+1)
	args = append(args, roomID)
	placeholders := ""
	for i, s := range statuses {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, s)
	}
	query := `SELECT COUNT(*) FROM bookings WHERE room_id = ? AND is_deleted = 0 AND status IN (` + placeholders + `)`
	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
