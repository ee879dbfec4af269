package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/models"
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt64(r *http.Request, name string) (int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// parseDate accepts both date-only and RFC3339 timestamps.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *HTTPServer) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID int64  `json:"customer_id"`
		RoomID     int64  `json:"room_id"`
		StartDate  string `json:"start_date"`
		EndDate    string `json:"end_date"`
		Note       string `json:"note"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.CustomerID <= 0 || body.RoomID <= 0 {
		writeError(w, http.StatusBadRequest, "customer_id and room_id are required")
		return
	}

	start, err := parseDate(body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date; expected YYYY-MM-DD")
		return
	}
	end, err := parseDate(body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date; expected YYYY-MM-DD")
		return
	}

	booking, err := s.bookings.AddToCart(r.Context(), body.CustomerID, body.RoomID, start, end, body.Note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleGetCart(w http.ResponseWriter, r *http.Request) {
	customerID, ok := queryInt64(r, "customer_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	cart, err := s.bookings.GetCart(r.Context(), customerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": cart})
}

func (s *HTTPServer) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	customerID, ok := queryInt64(r, "customer_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	if err := s.bookings.RemoveFromCart(r.Context(), customerID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": id})
}

func (s *HTTPServer) handleClearCart(w http.ResponseWriter, r *http.Request) {
	customerID, ok := queryInt64(r, "customer_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	removed, err := s.bookings.ClearCart(r.Context(), customerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (s *HTTPServer) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID int64 `json:"customer_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.CustomerID <= 0 {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	bookings, err := s.bookings.Checkout(r.Context(), body.CustomerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	if reference := strings.TrimSpace(r.URL.Query().Get("reference")); reference != "" {
		booking, err := s.bookings.GetBookingByReference(r.Context(), reference)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": []any{booking}})
		return
	}

	customerID, ok := queryInt64(r, "customer_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "customer_id or reference is required")
		return
	}

	bookings, err := s.bookings.ListBookingsByCustomer(r.Context(), customerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	s.simpleTransition(w, r, s.bookings.ConfirmPayment)
}

func (s *HTTPServer) handleBeginCheckIn(w http.ResponseWriter, r *http.Request) {
	s.simpleTransition(w, r, s.bookings.BeginCheckIn)
}

func (s *HTTPServer) handleConfirmCheckIn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var body struct {
		Actor string `json:"actor"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	actor := models.Actor(strings.ToUpper(strings.TrimSpace(body.Actor)))
	if actor != models.ActorCustomer && actor != models.ActorStaff {
		writeError(w, http.StatusBadRequest, "actor must be CUSTOMER or STAFF")
		return
	}

	booking, err := s.bookings.ConfirmCheckIn(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleInitiateCheckOut(w http.ResponseWriter, r *http.Request) {
	s.simpleTransition(w, r, s.bookings.InitiateCheckOut)
}

func (s *HTTPServer) handleInspection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var body struct {
		Note     string `json:"note"`
		HasIssue bool   `json:"has_issue"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	booking, err := s.bookings.StaffInspect(r.Context(), id, body.Note, body.HasIssue)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleFinalizeCheckOut(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var body struct {
		ReadyForNextGuest *bool `json:"ready_for_next_guest"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &body) {
		return
	}

	ready := true
	if body.ReadyForNextGuest != nil {
		ready = *body.ReadyForNextGuest
	}

	booking, err := s.bookings.FinalizeCheckOut(r.Context(), id, ready)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleStartCleaning(w http.ResponseWriter, r *http.Request) {
	s.simpleTransition(w, r, s.bookings.StartCleaning)
}

func (s *HTTPServer) handleCompleteCleaning(w http.ResponseWriter, r *http.Request) {
	s.simpleTransition(w, r, s.bookings.CompleteCleaning)
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var body struct {
		Actor string `json:"actor"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &body) {
		return
	}

	actor := models.Actor(strings.ToUpper(strings.TrimSpace(body.Actor)))
	if actor == "" {
		actor = models.ActorCustomer
	}
	if actor != models.ActorCustomer && actor != models.ActorStaff {
		writeError(w, http.StatusBadRequest, "actor must be CUSTOMER or STAFF")
		return
	}

	booking, err := s.bookings.Cancel(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type transitionFunc func(ctx context.Context, bookingID int64) (*models.Booking, error)

func (s *HTTPServer) simpleTransition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := fn(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.maintenance.ListRooms(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *HTTPServer) handleAvailableRooms(w http.ResponseWriter, r *http.Request) {
	start, end, ok := s.rangeParams(w, r)
	if !ok {
		return
	}

	rooms, err := s.availability.ListAvailableRooms(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	start, end, ok := s.rangeParams(w, r)
	if !ok {
		return
	}

	available, conflict, err := s.availability.CheckAvailability(r.Context(), id, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := map[string]any{"available": available}
	if conflict != nil {
		resp["conflict_booking_id"] = conflict.ID
		resp["conflict_start"] = conflict.StartDate
		resp["conflict_end"] = conflict.EndDate
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleNextAvailable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	next, busy, err := s.availability.NextAvailableDate(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := map[string]any{"busy": busy}
	if busy {
		resp["next_available"] = next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	limit := 0
	if v, ok := queryInt64(r, "limit"); ok {
		limit = int(v)
	}

	bookings, err := s.availability.UpcomingBookings(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleScheduleMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	var body struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		Reason    string `json:"reason"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	start, err := parseDate(body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date; expected YYYY-MM-DD")
		return
	}
	end, err := parseDate(body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date; expected YYYY-MM-DD")
		return
	}

	window, err := s.maintenance.ScheduleMaintenance(r.Context(), id, start, end, body.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, window)
}

func (s *HTTPServer) handleListMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	windows, err := s.maintenance.ListWindows(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"windows": windows})
}

func (s *HTTPServer) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	status := models.RoomSystemStatus(strings.ToUpper(strings.TrimSpace(body.Status)))
	if !status.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid system status")
		return
	}

	room, err := s.maintenance.SetRoomSystemStatus(r.Context(), id, status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *HTTPServer) handleCompleteMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid window id")
		return
	}

	window, err := s.maintenance.CompleteMaintenance(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, window)
}

func (s *HTTPServer) handleCancelMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid window id")
		return
	}

	if err := s.maintenance.CancelMaintenance(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": id})
}

func (s *HTTPServer) rangeParams(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	start, err := parseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	end, err := parseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end; expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
