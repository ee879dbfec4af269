package models

import "time"

type Room struct {
	ID           int64            `json:"id" yaml:"id"`
	RoomNumber   string           `json:"room_number" yaml:"room_number"`
	RoomType     string           `json:"room_type" yaml:"room_type"`
	Floor        int64            `json:"floor" yaml:"floor"`
	Size         int64            `json:"size" yaml:"size"`
	Price        float64          `json:"price" yaml:"price"`
	Status       RoomStatus       `json:"status" yaml:"status"`
	SystemStatus RoomSystemStatus `json:"system_status" yaml:"system_status"`
	CreatedAt    time.Time        `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time        `json:"updated_at" yaml:"-"`
}

// Bookable reports whether the room may be offered to guests at all.
// A room under maintenance (or stopped) is never offered, regardless of
// what the guest-facing status says.
func (r *Room) Bookable() bool {
	switch r.SystemStatus {
	case SystemMaintenance, SystemStopWorking:
		return false
	}
	return true
}
