package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/models"
)

func (db *DB) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.Status == "" {
		room.Status = models.RoomAvailable
	}
	if room.SystemStatus == "" {
		room.SystemStatus = models.SystemWorking
	}

	query := `INSERT INTO rooms (room_number, room_type, floor, size, price, status, system_status, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		room.RoomNumber, room.RoomType, room.Floor, room.Size, room.Price,
		room.Status, room.SystemStatus, now, now)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	room.ID = id
	room.CreatedAt = now
	room.UpdatedAt = now
	return nil
}

// UpsertRoom inserts a room or refreshes its descriptive fields by room number.
// Statuses are not touched for existing rooms so a seed reload never clobbers
// live state.
func (db *DB) UpsertRoom(ctx context.Context, room *models.Room) error {
	existing, err := db.GetRoomByNumber(ctx, room.RoomNumber)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return db.CreateRoom(ctx, room)
		}
		return err
	}

	query := `UPDATE rooms SET room_type = ?, floor = ?, size = ?, price = ?, updated_at = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query,
		room.RoomType, room.Floor, room.Size, room.Price, time.Now().UTC(), existing.ID); err != nil {
		return fmt.Errorf("failed to update room %s: %w", room.RoomNumber, err)
	}
	room.ID = existing.ID
	room.Status = existing.Status
	room.SystemStatus = existing.SystemStatus
	return nil
}

const roomColumns = `id, room_number, room_type, floor, size, price, status, system_status, created_at, updated_at`

func scanRoom(row interface{ Scan(...interface{}) error }) (*models.Room, error) {
	var room models.Room
	err := row.Scan(
		&room.ID, &room.RoomNumber, &room.RoomType, &room.Floor, &room.Size, &room.Price,
		&room.Status, &room.SystemStatus, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (db *DB) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	room, err := scanRoom(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (db *DB) GetRoomByNumber(ctx context.Context, number string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE room_number = ?`
	room, err := scanRoom(db.QueryRowContext(ctx, query, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room by number: %w", err)
	}
	return room, nil
}

func (db *DB) ListRooms(ctx context.Context) ([]*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms ORDER BY room_number ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (db *DB) ListRoomsByStatus(ctx context.Context, status models.RoomStatus) ([]*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE status = ? ORDER BY room_number ASC`
	rows, err := db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms by status: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (db *DB) SetRoomStatus(ctx context.Context, id int64, status models.RoomStatus) error {
	query := `UPDATE rooms SET status = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set room status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// SetRoomStatusIf moves the guest-facing status only when the current value
// matches. Returns ErrConcurrentModification when another writer got there
// first.
func (db *DB) SetRoomStatusIf(ctx context.Context, id int64, from, to models.RoomStatus) error {
	query := `UPDATE rooms SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("failed to set room status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := db.GetRoom(ctx, id); err != nil {
			return err
		}
		return ErrConcurrentModification
	}
	return nil
}

func (db *DB) SetRoomSystemStatus(ctx context.Context, id int64, status models.RoomSystemStatus) error {
	query := `UPDATE rooms SET system_status = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set room system status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRoomNotFound
	}
	return nil
}
