package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/config"
	"github.com/KhanhKube/hotel-management-sub000/internal/database"
	"github.com/KhanhKube/hotel-management-sub000/internal/events"
	"github.com/KhanhKube/hotel-management-sub000/internal/models"
	"github.com/KhanhKube/hotel-management-sub000/internal/repository"
	"github.com/KhanhKube/hotel-management-sub000/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server *HTTPServer
	db     *database.DB
	room   *models.Room
}

func newFixture(t *testing.T, cfg config.APIConfig) *fixture {
	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zerolog.Nop()
	cache := repository.NewMemoryAvailabilityCache()
	bus := events.NewEventBus()

	bookings := service.NewBookingService(db, cache, bus, 365, 3, &logger)
	availability := service.NewAvailabilityService(db, cache, time.Minute, &logger)
	maintenance := service.NewMaintenanceService(db, cache, bus, &logger)

	room := &models.Room{RoomNumber: "101", RoomType: "standard", Floor: 1, Price: 50}
	require.NoError(t, db.CreateRoom(context.Background(), room))

	server := NewHTTPServer(cfg, bookings, availability, maintenance, &logger)
	return &fixture{server: server, db: db, room: room}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func stayDates(offset, nights int) (string, string) {
	start := time.Now().AddDate(0, 0, 10+offset)
	return start.Format("2006-01-02"), start.AddDate(0, 0, nights).Format("2006-01-02")
}

func TestCartEndpoints(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	start, end := stayDates(0, 2)

	rec := f.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{
		"customer_id": 1,
		"room_id":     f.room.ID,
		"start_date":  start,
		"end_date":    end,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, "CART", created["status"])

	rec = f.do(t, http.MethodGet, "/api/v1/cart?customer_id=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode(t, rec)
	assert.Len(t, cart["items"], 1)

	// Same range again conflicts and names the blocker
	rec = f.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{
		"customer_id": 2,
		"room_id":     f.room.ID,
		"start_date":  start,
		"end_date":    end,
	}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	conflict := decode(t, rec)
	assert.Equal(t, created["id"], conflict["conflict_booking_id"])

	rec = f.do(t, http.MethodPost, "/api/v1/cart/checkout", map[string]any{"customer_id": 1}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Len(t, out["bookings"], 1)

	// Checking out an empty cart is rejected
	rec = f.do(t, http.MethodPost, "/api/v1/cart/checkout", map[string]any{"customer_id": 1}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLifecycleEndpoints(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	start, end := stayDates(0, 2)

	rec := f.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{
		"customer_id": 1,
		"room_id":     f.room.ID,
		"start_date":  start,
		"end_date":    end,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := int64(decode(t, rec)["id"].(float64))

	rec = f.do(t, http.MethodPost, "/api/v1/cart/checkout", map[string]any{"customer_id": 1}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	steps := []struct {
		path string
		body any
		want string
	}{
		{fmt.Sprintf("/api/v1/bookings/%d/confirm-payment", id), nil, "RESERVED"},
		{fmt.Sprintf("/api/v1/bookings/%d/check-in", id), nil, "CHECKING_IN"},
		{fmt.Sprintf("/api/v1/bookings/%d/check-in/confirm", id), map[string]any{"actor": "CUSTOMER"}, "CUSTOMER_CONFIRM"},
		{fmt.Sprintf("/api/v1/bookings/%d/check-in/confirm", id), map[string]any{"actor": "STAFF"}, "OCCUPIED"},
		{fmt.Sprintf("/api/v1/bookings/%d/check-out", id), nil, "NEED_CHECKOUT"},
		{fmt.Sprintf("/api/v1/bookings/%d/inspection", id), map[string]any{"note": "all clear"}, "CHECKED_OUT"},
		{fmt.Sprintf("/api/v1/bookings/%d/check-out/finalize", id), nil, "NEED_CLEAN"},
		{fmt.Sprintf("/api/v1/bookings/%d/cleaning/start", id), nil, "CLEANING"},
		{fmt.Sprintf("/api/v1/bookings/%d/cleaning/complete", id), nil, "COMPLETED"},
	}
	for _, step := range steps {
		rec := f.do(t, http.MethodPost, step.path, step.body, nil)
		require.Equal(t, http.StatusOK, rec.Code, "%s: %s", step.path, rec.Body.String())
		assert.Equal(t, step.want, decode(t, rec)["status"], step.path)
	}

	// Out-of-order transition is a conflict
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/check-in", id), nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAvailabilityEndpoints(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	start, end := stayDates(0, 2)

	path := fmt.Sprintf("/api/v1/rooms/%d/availability?start=%s&end=%s", f.room.ID, start, end)
	rec := f.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["available"])

	rec = f.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{
		"customer_id": 1,
		"room_id":     f.room.ID,
		"start_date":  start,
		"end_date":    end,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, false, out["available"])
	assert.NotNil(t, out["conflict_booking_id"])

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/rooms/%d/next-available", f.room.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["busy"])

	rec = f.do(t, http.MethodGet, "/api/v1/rooms/99999/next-available", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMaintenanceEndpoints(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	start, end := stayDates(20, 3)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/rooms/%d/maintenance", f.room.ID), map[string]any{
		"start_date": start,
		"end_date":   end,
		"reason":     "repaint",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/rooms/%d/maintenance", f.room.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["windows"], 1)

	rec = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/rooms/%d/system-status", f.room.ID), map[string]any{
		"status": "STOP_WORKING",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "STOP_WORKING", out["system_status"])
	assert.Equal(t, "MAINTENANCE", out["status"])

	rec = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/rooms/%d/system-status", f.room.ID), map[string]any{
		"status": "BROKEN",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys: []config.APIClientKey{
				{Key: "reader-key", Name: "reader", Permissions: []string{"read"}},
				{Key: "admin-key", Name: "admin", Permissions: []string{"*"}},
			},
		},
	}
	f := newFixture(t, cfg)

	rec := f.do(t, http.MethodGet, "/api/v1/rooms", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/rooms", nil, map[string]string{"x-api-key": "bogus"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/rooms", nil, map[string]string{"x-api-key": "reader-key"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Reader cannot write
	start, end := stayDates(0, 2)
	body := map[string]any{"customer_id": 1, "room_id": f.room.ID, "start_date": start, "end_date": end}
	rec = f.do(t, http.MethodPost, "/api/v1/cart/items", body, map[string]string{"x-api-key": "reader-key"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/cart/items", body, map[string]string{"x-api-key": "admin-key"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := config.APIConfig{
		RateLimit: config.APIRateLimitConfig{RPS: 1, Burst: 2},
	}
	f := newFixture(t, cfg)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rec := f.do(t, http.MethodGet, "/api/v1/rooms", nil, nil)
		codes = append(codes, rec.Code)
	}
	assert.Contains(t, codes, http.StatusTooManyRequests)
}
