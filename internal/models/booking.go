package models

import "time"

// Booking is a customer's claim on a room for a half-open date range
// [StartDate, EndDate). Touching ranges do not conflict.
type Booking struct {
	ID             int64         `json:"id"`
	Reference      string        `json:"reference"`
	RoomID         int64         `json:"room_id"`
	RoomNumber     string        `json:"room_number,omitempty"`
	CustomerID     int64         `json:"customer_id"`
	StartDate      time.Time     `json:"start_date"`
	EndDate        time.Time     `json:"end_date"`
	Status         BookingStatus `json:"status"`
	Amount         float64       `json:"amount"`
	Note           string        `json:"note,omitempty"`
	InspectionNote string        `json:"inspection_note,omitempty"`
	HasDamage      bool          `json:"has_damage"`
	CheckedInAt    *time.Time    `json:"checked_in_at,omitempty"`
	CheckedOutAt   *time.Time    `json:"checked_out_at,omitempty"`
	IsDeleted      bool          `json:"is_deleted"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Version        int64         `json:"version"`
}

// Nights returns the stay length used for the flat rate × nights amount.
func (b *Booking) Nights() int {
	n := int(b.EndDate.Sub(b.StartDate).Hours() / 24)
	if n < 1 {
		n = 1
	}
	return n
}

// Overlaps reports whether the booking's range intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartDate.Before(end) && b.EndDate.After(start)
}
