package models

import "time"

// MaintenanceWindow is an administratively scheduled period during which a
// room is forced out of guest availability. Activation and completion are
// driven by the maintenance sweep, never by the guest workflow.
type MaintenanceWindow struct {
	ID        int64             `json:"id"`
	RoomID    int64             `json:"room_id"`
	StartDate time.Time         `json:"start_date"`
	EndDate   time.Time         `json:"end_date"`
	Status    MaintenanceStatus `json:"status"`
	Reason    string            `json:"reason,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Covers reports whether the window spans the given instant.
func (w *MaintenanceWindow) Covers(t time.Time) bool {
	return !w.StartDate.After(t) && w.EndDate.After(t)
}
