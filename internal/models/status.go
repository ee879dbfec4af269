package models

// BookingStatus tracks a booking through the occupancy workflow.
type BookingStatus string

const (
	BookingCart            BookingStatus = "CART"
	BookingPending         BookingStatus = "PENDING"
	BookingReserved        BookingStatus = "RESERVED"
	BookingCheckingIn      BookingStatus = "CHECKING_IN"
	BookingCustomerConfirm BookingStatus = "CUSTOMER_CONFIRM"
	BookingOccupied        BookingStatus = "OCCUPIED"
	BookingNeedCheckout    BookingStatus = "NEED_CHECKOUT"
	BookingCheckingOut     BookingStatus = "CHECKING_OUT"
	BookingCheckedOut      BookingStatus = "CHECKED_OUT"
	BookingNeedClean       BookingStatus = "NEED_CLEAN"
	BookingCleaning        BookingStatus = "CLEANING"
	BookingCompleted       BookingStatus = "COMPLETED"
	BookingCancelled       BookingStatus = "CANCELLED"
)

// AllBookingStatuses lists every lifecycle state, in causal order.
var AllBookingStatuses = []BookingStatus{
	BookingCart,
	BookingPending,
	BookingReserved,
	BookingCheckingIn,
	BookingCustomerConfirm,
	BookingOccupied,
	BookingNeedCheckout,
	BookingCheckingOut,
	BookingCheckedOut,
	BookingNeedClean,
	BookingCleaning,
	BookingCompleted,
	BookingCancelled,
}

// validTransitions is the booking state machine. CANCELLED is reachable
// until staff begin confirming the check-in; everything else advances one
// step at a time.
var validTransitions = map[BookingStatus][]BookingStatus{
	BookingCart:            {BookingPending, BookingCancelled},
	BookingPending:         {BookingReserved, BookingCancelled},
	BookingReserved:        {BookingCheckingIn, BookingCancelled},
	BookingCheckingIn:      {BookingCustomerConfirm, BookingCancelled},
	BookingCustomerConfirm: {BookingOccupied},
	BookingOccupied:        {BookingNeedCheckout},
	BookingNeedCheckout:    {BookingCheckingOut},
	BookingCheckingOut:     {BookingCheckedOut},
	BookingCheckedOut:      {BookingNeedClean},
	BookingNeedClean:       {BookingCleaning},
	BookingCleaning:        {BookingCompleted},
	BookingCompleted:       {},
	BookingCancelled:       {},
}

// IsValid reports whether s is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo reports whether the state machine permits s → target.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// IsActive reports whether the booking counts in room overlap checks.
// CANCELLED and COMPLETED bookings release their date range.
func (s BookingStatus) IsActive() bool {
	return s != BookingCancelled && s != BookingCompleted
}

// CanBeCancelled reports whether cancellation is still permitted. Once a
// guest occupies the room the booking has to run through checkout.
func (s BookingStatus) CanBeCancelled() bool {
	return s.CanTransitionTo(BookingCancelled)
}

func (s BookingStatus) String() string {
	return string(s)
}

// RoomStatus is the guest-facing occupancy status of a room.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "AVAILABLE"
	RoomOccupied    RoomStatus = "OCCUPIED"
	RoomCleaning    RoomStatus = "CLEANING"
	RoomReserved    RoomStatus = "RESERVED"
	RoomMaintenance RoomStatus = "MAINTENANCE"
)

// RoomSystemStatus is the physical-condition axis of a room. It is driven by
// maintenance windows and administrative action, not by the guest workflow,
// and it overrides the guest-facing status whenever the two disagree.
type RoomSystemStatus string

const (
	SystemWorking         RoomSystemStatus = "WORKING"
	SystemNearMaintenance RoomSystemStatus = "NEAR_MAINTENANCE"
	SystemMaintenance     RoomSystemStatus = "MAINTENANCE"
	SystemNearStopWorking RoomSystemStatus = "NEAR_STOP_WORKING"
	SystemStopWorking     RoomSystemStatus = "STOP_WORKING"
)

// IsValid reports whether s is a recognized system status.
func (s RoomSystemStatus) IsValid() bool {
	switch s {
	case SystemWorking, SystemNearMaintenance, SystemMaintenance, SystemNearStopWorking, SystemStopWorking:
		return true
	}
	return false
}

// MaintenanceStatus tracks a maintenance window through its own lifecycle.
type MaintenanceStatus string

const (
	MaintenanceScheduled MaintenanceStatus = "SCHEDULED"
	MaintenanceActive    MaintenanceStatus = "ACTIVE"
	MaintenanceCompleted MaintenanceStatus = "COMPLETED"
)
