package service

import (
	"context"
	"errors"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/database"
	"github.com/KhanhKube/hotel-management-sub000/internal/domain"
	"github.com/KhanhKube/hotel-management-sub000/internal/events"
	"github.com/KhanhKube/hotel-management-sub000/internal/metrics"
	"github.com/KhanhKube/hotel-management-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrPastDate   = errors.New("booking date is in the past")
	ErrDateTooFar = errors.New("booking date is too far in the future")
	ErrWrongActor = errors.New("operation is not allowed for this actor")
)

type BookingService struct {
	store           domain.Store
	cache           domain.AvailabilityCache
	eventBus        domain.EventPublisher
	maxBookingDays  int
	maintenanceDays int
	logger          *zerolog.Logger
}

func NewBookingService(store domain.Store, cache domain.AvailabilityCache, eventBus domain.EventPublisher, maxBookingDays, maintenanceDays int, logger *zerolog.Logger) *BookingService {
	if maxBookingDays <= 0 {
		maxBookingDays = 365
	}
	if maintenanceDays <= 0 {
		maintenanceDays = models.DefaultMaintenanceDays
	}
	return &BookingService{
		store:           store,
		cache:           cache,
		eventBus:        eventBus,
		maxBookingDays:  maxBookingDays,
		maintenanceDays: maintenanceDays,
		logger:          logger,
	}
}

func (s *BookingService) ValidateRange(start, end time.Time) error {
	if !start.Before(end) {
		return database.ErrInvalidRange
	}
	if start.Before(time.Now().AddDate(0, 0, -1)) {
		return ErrPastDate
	}
	if end.After(time.Now().AddDate(0, 0, s.maxBookingDays)) {
		return ErrDateTooFar
	}
	return nil
}

// AddToCart places a hold on the room for [start, end). The row stays in CART
// until checkout or expiry, and blocks other customers for the same range.
func (s *BookingService) AddToCart(ctx context.Context, customerID, roomID int64, start, end time.Time, note string) (*models.Booking, error) {
	if err := s.ValidateRange(start, end); err != nil {
		metrics.IncTransitionFailure("add_to_cart", "invalid_range")
		return nil, err
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.Bookable() {
		metrics.IncTransitionFailure("add_to_cart", "room_not_bookable")
		return nil, database.ErrRoomNotBookable
	}

	booking := &models.Booking{
		RoomID:     roomID,
		RoomNumber: room.RoomNumber,
		CustomerID: customerID,
		StartDate:  start,
		EndDate:    end,
		Note:       note,
	}
	booking.Amount = float64(booking.Nights()) * room.Price

	if err := s.store.AddToCart(ctx, booking); err != nil {
		if database.IsUnavailable(err) {
			metrics.IncTransitionFailure("add_to_cart", "range_conflict")
		}
		return nil, err
	}
	booking.RoomNumber = room.RoomNumber

	s.invalidateAvailability(ctx, roomID)
	s.publishBookingEvent(events.EventCartAdded, booking, string(models.ActorCustomer))

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("room_id", roomID).
		Int64("customer_id", customerID).
		Time("start", start).
		Time("end", end).
		Msg("Room added to cart")

	return booking, nil
}

func (s *BookingService) GetCart(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	return s.store.GetCart(ctx, customerID)
}

func (s *BookingService) RemoveFromCart(ctx context.Context, customerID, bookingID int64) error {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := s.store.RemoveFromCart(ctx, customerID, bookingID); err != nil {
		return err
	}
	s.invalidateAvailability(ctx, booking.RoomID)
	return nil
}

func (s *BookingService) ClearCart(ctx context.Context, customerID int64) (int64, error) {
	cart, err := s.store.GetCart(ctx, customerID)
	if err != nil {
		return 0, err
	}
	removed, err := s.store.ClearCart(ctx, customerID)
	if err != nil {
		return 0, err
	}
	for _, b := range cart {
		s.invalidateAvailability(ctx, b.RoomID)
	}
	return removed, nil
}

// Checkout promotes the whole cart to PENDING atomically. Either every row
// becomes a pending booking with a payment reference, or none does.
func (s *BookingService) Checkout(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	bookings, err := s.store.CheckoutCart(ctx, customerID, func() string {
		return uuid.NewString()
	})
	if err != nil {
		metrics.IncTransitionFailure("checkout", failureReason(err))
		return nil, err
	}

	for _, b := range bookings {
		metrics.IncTransition(string(models.BookingCart), string(models.BookingPending))
		s.invalidateAvailability(ctx, b.RoomID)
		s.publishBookingEvent(events.EventCheckoutCompleted, b, string(models.ActorCustomer))
	}

	s.logger.Info().
		Int64("customer_id", customerID).
		Int("bookings", len(bookings)).
		Msg("Cart checked out")

	return bookings, nil
}

// ConfirmPayment moves a PENDING booking to RESERVED once payment clears.
// The room stays guest-AVAILABLE: until OCCUPIED the overlap query is the
// sole source of truth for who holds the range.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID int64) (*models.Booking, error) {
	booking, err := s.transition(ctx, bookingID, models.BookingPending, models.BookingReserved, "confirm_payment")
	if err != nil {
		return nil, err
	}

	s.publishBookingEvent(events.EventBookingReserved, booking, string(models.ActorStaff))
	return booking, nil
}

// BeginCheckIn opens the check-in flow for a RESERVED booking. The room must
// still be guest-AVAILABLE, and it is not claimed until both check-in legs
// confirm, so an abandoned attempt never locks the room.
func (s *BookingService) BeginCheckIn(ctx context.Context, bookingID int64) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	room, err := s.store.GetRoom(ctx, booking.RoomID)
	if err != nil {
		return nil, err
	}
	if room.Status != models.RoomAvailable {
		metrics.IncTransitionFailure("begin_check_in", "room_not_available")
		return nil, database.ErrRoomNotBookable
	}

	return s.transition(ctx, bookingID, models.BookingReserved, models.BookingCheckingIn, "begin_check_in")
}

// ConfirmCheckIn completes one leg of the two-party check-in. The customer
// confirms first, moving the booking to CUSTOMER_CONFIRM; staff then confirm
// against that state, which occupies the room.
func (s *BookingService) ConfirmCheckIn(ctx context.Context, bookingID int64, actor models.Actor) (*models.Booking, error) {
	switch actor {
	case models.ActorCustomer:
		return s.transition(ctx, bookingID, models.BookingCheckingIn, models.BookingCustomerConfirm, "confirm_check_in")

	case models.ActorStaff:
		// Booking and room move together or not at all.
		now := time.Now()
		if err := s.store.TransitionBookingAndRoom(ctx, bookingID, models.BookingCustomerConfirm, models.BookingOccupied, models.RoomOccupied, &now); err != nil {
			metrics.IncTransitionFailure("confirm_check_in", failureReason(err))
			return nil, err
		}
		metrics.IncTransition(string(models.BookingCustomerConfirm), string(models.BookingOccupied))

		booking, err := s.store.GetBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		s.publishBookingEvent(events.EventBookingOccupied, booking, string(actor))
		return booking, nil

	default:
		return nil, ErrWrongActor
	}
}

// InitiateCheckOut is the customer's request to leave an OCCUPIED room.
func (s *BookingService) InitiateCheckOut(ctx context.Context, bookingID int64) (*models.Booking, error) {
	return s.transition(ctx, bookingID, models.BookingOccupied, models.BookingNeedCheckout, "initiate_check_out")
}

// StaffInspect records the room inspection and walks the booking through
// CHECKING_OUT to CHECKED_OUT, stamping the actual check-out time. An issue
// found during inspection is noted but never blocks progression.
func (s *BookingService) StaffInspect(ctx context.Context, bookingID int64, note string, hasIssue bool) (*models.Booking, error) {
	if _, err := s.transition(ctx, bookingID, models.BookingNeedCheckout, models.BookingCheckingOut, "staff_inspect"); err != nil {
		return nil, err
	}

	if err := s.store.SetInspection(ctx, bookingID, note, hasIssue); err != nil {
		return nil, err
	}

	if err := s.store.MarkCheckedOut(ctx, bookingID, models.BookingCheckingOut, time.Now()); err != nil {
		metrics.IncTransitionFailure("staff_inspect", failureReason(err))
		return nil, err
	}
	metrics.IncTransition(string(models.BookingCheckingOut), string(models.BookingCheckedOut))

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.publishBookingEvent(events.EventBookingCheckedOut, booking, string(models.ActorStaff))
	return booking, nil
}

// FinalizeCheckOut moves a CHECKED_OUT booking to NEED_CLEAN and flips the
// room to CLEANING. A room not ready for the next guest gets the damage flag
// and an immediately scheduled maintenance window; the sweep activates it.
func (s *BookingService) FinalizeCheckOut(ctx context.Context, bookingID int64, readyForNextGuest bool) (*models.Booking, error) {
	if err := s.store.TransitionBookingAndRoom(ctx, bookingID, models.BookingCheckedOut, models.BookingNeedClean, models.RoomCleaning, nil); err != nil {
		metrics.IncTransitionFailure("finalize_check_out", failureReason(err))
		return nil, err
	}
	metrics.IncTransition(string(models.BookingCheckedOut), string(models.BookingNeedClean))

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !readyForNextGuest {
		if !booking.HasDamage {
			if err := s.store.SetInspection(ctx, bookingID, booking.InspectionNote, true); err != nil {
				s.logger.Warn().Err(err).Int64("booking_id", bookingID).Msg("Failed to flag damage")
			} else {
				booking.HasDamage = true
			}
		}

		now := time.Now()
		window := &models.MaintenanceWindow{
			RoomID:    booking.RoomID,
			StartDate: now,
			EndDate:   now.AddDate(0, 0, s.maintenanceDays),
			Reason:    "damage reported at checkout: " + booking.InspectionNote,
		}
		if err := s.store.CreateMaintenanceWindow(ctx, window); err != nil {
			s.logger.Error().Err(err).Int64("room_id", booking.RoomID).Msg("Failed to schedule damage maintenance")
		} else {
			s.logger.Info().
				Int64("room_id", booking.RoomID).
				Int64("window_id", window.ID).
				Msg("Damage maintenance scheduled")
			s.invalidateAvailability(ctx, booking.RoomID)
		}
	}

	return booking, nil
}

// StartCleaning moves a NEED_CLEAN booking into CLEANING.
func (s *BookingService) StartCleaning(ctx context.Context, bookingID int64) (*models.Booking, error) {
	return s.transition(ctx, bookingID, models.BookingNeedClean, models.BookingCleaning, "start_cleaning")
}

// CompleteCleaning closes the lifecycle, accepting a booking still sitting in
// NEED_CLEAN by walking it through CLEANING first. The room returns to
// AVAILABLE unless maintenance owns it; the system axis always wins over the
// guest-facing one.
func (s *BookingService) CompleteCleaning(ctx context.Context, bookingID int64) (*models.Booking, error) {
	current, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status == models.BookingNeedClean {
		if _, err := s.transition(ctx, bookingID, models.BookingNeedClean, models.BookingCleaning, "complete_cleaning"); err != nil {
			return nil, err
		}
	}

	next := models.RoomAvailable
	underMaintenance, err := s.store.HasActiveWindow(ctx, current.RoomID, time.Now())
	if err != nil {
		s.logger.Warn().Err(err).Int64("room_id", current.RoomID).Msg("Failed to check maintenance windows")
	}
	if !underMaintenance {
		if room, err := s.store.GetRoom(ctx, current.RoomID); err == nil {
			underMaintenance = room.SystemStatus == models.SystemMaintenance || room.SystemStatus == models.SystemStopWorking
		}
	}
	if underMaintenance {
		next = models.RoomMaintenance
	}

	if err := s.store.TransitionBookingAndRoom(ctx, bookingID, models.BookingCleaning, models.BookingCompleted, next, nil); err != nil {
		metrics.IncTransitionFailure("complete_cleaning", failureReason(err))
		return nil, err
	}
	metrics.IncTransition(string(models.BookingCleaning), string(models.BookingCompleted))

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.invalidateAvailability(ctx, booking.RoomID)
	s.publishBookingEvent(events.EventBookingCompleted, booking, string(models.ActorStaff))
	return booking, nil
}

// Cancel aborts a booking that has not reached OCCUPIED yet.
func (s *BookingService) Cancel(ctx context.Context, bookingID int64, actor models.Actor) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Status.CanBeCancelled() {
		metrics.IncTransitionFailure("cancel", "not_cancellable")
		return nil, database.ErrInvalidState
	}

	if err := s.store.TransitionBooking(ctx, bookingID, booking.Status, models.BookingCancelled); err != nil {
		metrics.IncTransitionFailure("cancel", failureReason(err))
		return nil, err
	}
	metrics.IncTransition(string(booking.Status), string(models.BookingCancelled))
	booking.Status = models.BookingCancelled

	// Dropping the row from the active overlap set is the whole release;
	// room status was never claimed before OCCUPIED.
	s.invalidateAvailability(ctx, booking.RoomID)
	s.publishBookingEvent(events.EventBookingCancelled, booking, string(actor))

	s.logger.Info().
		Int64("booking_id", bookingID).
		Str("actor", string(actor)).
		Msg("Booking cancelled")

	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

func (s *BookingService) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return s.store.GetBookingByReference(ctx, reference)
}

func (s *BookingService) ListBookingsByCustomer(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	return s.store.ListBookingsByCustomer(ctx, customerID)
}

func (s *BookingService) transition(ctx context.Context, bookingID int64, from, to models.BookingStatus, op string) (*models.Booking, error) {
	if !from.CanTransitionTo(to) {
		metrics.IncTransitionFailure(op, "invalid_transition")
		return nil, database.ErrInvalidState
	}
	if err := s.store.TransitionBooking(ctx, bookingID, from, to); err != nil {
		metrics.IncTransitionFailure(op, failureReason(err))
		return nil, err
	}
	metrics.IncTransition(string(from), string(to))
	return s.store.GetBooking(ctx, bookingID)
}

func (s *BookingService) invalidateAvailability(ctx context.Context, roomID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, roomID); err != nil {
		s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("Failed to invalidate availability cache")
	}
}

func (s *BookingService) publishBookingEvent(eventType string, booking *models.Booking, actor string) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:  booking.ID,
		Reference:  booking.Reference,
		CustomerID: booking.CustomerID,
		RoomID:     booking.RoomID,
		RoomNumber: booking.RoomNumber,
		Status:     string(booking.Status),
		StartDate:  booking.StartDate,
		EndDate:    booking.EndDate,
		ChangedBy:  actor,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, database.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, database.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, database.ErrBookingNotFound):
		return "not_found"
	case errors.Is(err, database.ErrEmptyCart):
		return "empty_cart"
	case database.IsUnavailable(err):
		return "range_conflict"
	default:
		return "error"
	}
}
