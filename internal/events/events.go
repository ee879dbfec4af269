package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventCartAdded         = "cart_added"
	EventCheckoutCompleted = "checkout_completed"
	EventBookingReserved   = "booking_reserved"
	EventBookingOccupied   = "booking_occupied"
	EventBookingCheckedOut = "booking_checked_out"
	EventBookingCompleted  = "booking_completed"
	EventBookingCancelled  = "booking_cancelled"
	EventMaintenanceOpened = "maintenance_opened"
	EventMaintenanceClosed = "maintenance_closed"
	EventRoomStatusChanged = "room_status_changed"
)

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID  int64     `json:"booking_id"`
	Reference  string    `json:"reference,omitempty"`
	CustomerID int64     `json:"customer_id"`
	RoomID     int64     `json:"room_id"`
	RoomNumber string    `json:"room_number,omitempty"`
	Status     string    `json:"status"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	ChangedBy  string    `json:"changed_by,omitempty"`
}

// RoomEventPayload describes a room status change for event consumers.
type RoomEventPayload struct {
	RoomID       int64  `json:"room_id"`
	RoomNumber   string `json:"room_number"`
	Status       string `json:"status"`
	SystemStatus string `json:"system_status"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: data})
	return nil
}
