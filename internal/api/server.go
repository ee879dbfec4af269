package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/config"
	"github.com/KhanhKube/hotel-management-sub000/internal/database"
	"github.com/KhanhKube/hotel-management-sub000/internal/metrics"
	"github.com/KhanhKube/hotel-management-sub000/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking lifecycle and availability API.
type HTTPServer struct {
	cfg          config.APIConfig
	bookings     *service.BookingService
	availability *service.AvailabilityService
	maintenance  *service.MaintenanceService
	server       *http.Server
	auth         *HTTPAuth
	logger       *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, bookings *service.BookingService, availability *service.AvailabilityService, maintenance *service.MaintenanceService, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:          cfg,
		bookings:     bookings,
		availability: availability,
		maintenance:  maintenance,
		logger:       logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/cart/items", srv.handleAddToCart)
	mux.HandleFunc("GET /api/v1/cart", srv.handleGetCart)
	mux.HandleFunc("DELETE /api/v1/cart/items/{id}", srv.handleRemoveFromCart)
	mux.HandleFunc("DELETE /api/v1/cart", srv.handleClearCart)
	mux.HandleFunc("POST /api/v1/cart/checkout", srv.handleCheckout)

	mux.HandleFunc("GET /api/v1/bookings/{id}", srv.handleGetBooking)
	mux.HandleFunc("GET /api/v1/bookings", srv.handleListBookings)
	mux.HandleFunc("POST /api/v1/bookings/{id}/confirm-payment", srv.handleConfirmPayment)
	mux.HandleFunc("POST /api/v1/bookings/{id}/check-in", srv.handleBeginCheckIn)
	mux.HandleFunc("POST /api/v1/bookings/{id}/check-in/confirm", srv.handleConfirmCheckIn)
	mux.HandleFunc("POST /api/v1/bookings/{id}/check-out", srv.handleInitiateCheckOut)
	mux.HandleFunc("POST /api/v1/bookings/{id}/inspection", srv.handleInspection)
	mux.HandleFunc("POST /api/v1/bookings/{id}/check-out/finalize", srv.handleFinalizeCheckOut)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cleaning/start", srv.handleStartCleaning)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cleaning/complete", srv.handleCompleteCleaning)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", srv.handleCancel)

	mux.HandleFunc("GET /api/v1/rooms", srv.handleListRooms)
	mux.HandleFunc("GET /api/v1/rooms/available", srv.handleAvailableRooms)
	mux.HandleFunc("GET /api/v1/rooms/{id}/availability", srv.handleAvailability)
	mux.HandleFunc("GET /api/v1/rooms/{id}/next-available", srv.handleNextAvailable)
	mux.HandleFunc("GET /api/v1/rooms/{id}/upcoming", srv.handleUpcoming)
	mux.HandleFunc("POST /api/v1/rooms/{id}/maintenance", srv.handleScheduleMaintenance)
	mux.HandleFunc("GET /api/v1/rooms/{id}/maintenance", srv.handleListMaintenance)
	mux.HandleFunc("PUT /api/v1/rooms/{id}/system-status", srv.handleSystemStatus)
	mux.HandleFunc("POST /api/v1/maintenance/{id}/complete", srv.handleCompleteMaintenance)
	mux.HandleFunc("POST /api/v1/maintenance/{id}/cancel", srv.handleCancelMaintenance)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the configured HTTP handler for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{"error": message})
}

// writeServiceError maps domain errors onto HTTP statuses. Range conflicts
// carry the blocking booking so callers can show it.
func writeServiceError(w http.ResponseWriter, err error) {
	var unavailable *database.RoomUnavailableError
	if errors.As(err, &unavailable) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":               err.Error(),
			"conflict_booking_id": unavailable.BookingID,
			"conflict_start":      unavailable.StartDate,
			"conflict_end":        unavailable.EndDate,
		})
		return
	}

	switch {
	case errors.Is(err, database.ErrRoomNotFound),
		errors.Is(err, database.ErrBookingNotFound),
		errors.Is(err, database.ErrWindowNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrInvalidRange),
		errors.Is(err, database.ErrEmptyCart),
		errors.Is(err, service.ErrPastDate),
		errors.Is(err, service.ErrDateTooFar),
		errors.Is(err, service.ErrWrongActor):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrInvalidState),
		errors.Is(err, database.ErrConcurrentModification),
		errors.Is(err, database.ErrRoomNotBookable),
		errors.Is(err, database.ErrMaintenanceConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
