package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/models"
)

const windowColumns = `id, room_id, start_date, end_date, status, reason, created_at, updated_at`

func scanWindow(row rowScanner) (*models.MaintenanceWindow, error) {
	var w models.MaintenanceWindow
	var reason sql.NullString
	err := row.Scan(&w.ID, &w.RoomID, &w.StartDate, &w.EndDate, &w.Status, &reason, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.Reason = reason.String
	return &w, nil
}

func (db *DB) CreateMaintenanceWindow(ctx context.Context, window *models.MaintenanceWindow) error {
	if !window.StartDate.Before(window.EndDate) {
		return ErrInvalidRange
	}
	if window.Status == "" {
		window.Status = models.MaintenanceScheduled
	}

	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`INSERT INTO maintenance_windows (room_id, start_date, end_date, status, reason, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		window.RoomID, window.StartDate.UTC(), window.EndDate.UTC(),
		window.Status, window.Reason, now, now)
	if err != nil {
		return fmt.Errorf("failed to create maintenance window: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	window.ID = id
	window.CreatedAt = now
	window.UpdatedAt = now
	return nil
}

func (db *DB) GetMaintenanceWindow(ctx context.Context, id int64) (*models.MaintenanceWindow, error) {
	query := `SELECT ` + windowColumns + ` FROM maintenance_windows WHERE id = ?`
	w, err := scanWindow(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, fmt.Errorf("failed to get maintenance window: %w", err)
	}
	return w, nil
}

func (db *DB) ListMaintenanceWindows(ctx context.Context, roomID int64) ([]*models.MaintenanceWindow, error) {
	query := `SELECT ` + windowColumns + ` FROM maintenance_windows
              WHERE room_id = ? ORDER BY start_date ASC`
	return db.queryWindows(ctx, query, roomID)
}

// DueScheduledWindows lists SCHEDULED windows whose start has passed, oldest
// first. Windows whose whole range already elapsed are included so the sweep
// can close them out instead of leaving them SCHEDULED forever.
func (db *DB) DueScheduledWindows(ctx context.Context, at time.Time) ([]*models.MaintenanceWindow, error) {
	query := `SELECT ` + windowColumns + ` FROM maintenance_windows
              WHERE status = ? AND start_date <= ?
              ORDER BY start_date ASC`
	return db.queryWindows(ctx, query, models.MaintenanceScheduled, at.UTC())
}

// ExpiredActiveWindows lists ACTIVE windows whose end has passed.
func (db *DB) ExpiredActiveWindows(ctx context.Context, at time.Time) ([]*models.MaintenanceWindow, error) {
	query := `SELECT ` + windowColumns + ` FROM maintenance_windows
              WHERE status = ? AND end_date <= ?
              ORDER BY end_date ASC`
	return db.queryWindows(ctx, query, models.MaintenanceActive, at.UTC())
}

// TransitionWindow performs a status-guarded update on a maintenance window.
func (db *DB) TransitionWindow(ctx context.Context, id int64, from, to models.MaintenanceStatus) error {
	result, err := db.ExecContext(ctx,
		`UPDATE maintenance_windows SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("failed to transition maintenance window: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := db.GetMaintenanceWindow(ctx, id); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// HasActiveWindow reports whether the room has an ACTIVE window covering the
// given moment.
func (db *DB) HasActiveWindow(ctx context.Context, roomID int64, at time.Time) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM maintenance_windows
         WHERE room_id = ? AND status = ? AND start_date <= ? AND end_date > ?`,
		roomID, models.MaintenanceActive, at.UTC(), at.UTC()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check active windows: %w", err)
	}
	return count > 0, nil
}

// OverlappingWindow returns the first open window intersecting [start, end),
// or nil when the range is clear of maintenance.
func (db *DB) OverlappingWindow(ctx context.Context, roomID int64, start, end time.Time) (*models.MaintenanceWindow, error) {
	query := `SELECT ` + windowColumns + ` FROM maintenance_windows
              WHERE room_id = ? AND status IN (?, ?)
              AND start_date < ? AND end_date > ?
              ORDER BY start_date ASC LIMIT 1`
	w, err := scanWindow(db.QueryRowContext(ctx, query, roomID,
		models.MaintenanceScheduled, models.MaintenanceActive, end.UTC(), start.UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check window overlap: %w", err)
	}
	return w, nil
}

func (db *DB) queryWindows(ctx context.Context, query string, args ...interface{}) ([]*models.MaintenanceWindow, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query maintenance windows: %w", err)
	}
	defer rows.Close()

	var windows []*models.MaintenanceWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan maintenance window: %w", err)
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}
