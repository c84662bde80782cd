package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/tripbook/config"
	"github.com/shiva/tripbook/internal/model"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Server:        config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Auth:          config.AuthConfig{JWTSecret: "app-test", TokenTTL: time.Hour},
		StoreDriver:   config.StoreDriverMemory,
		TripsCacheTTL: time.Minute,
		ConsumerGroup: "test",
	}
}

func startApp(t *testing.T) *App {
	t.Helper()
	a, err := New(context.Background(), memoryConfig(), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.RunRouter(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		a.Close()
	})

	select {
	case <-a.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("event router did not start")
	}
	return a
}

func call(t *testing.T, a *App, method, path string, user model.User, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	token, err := a.Issuer.Issue(user)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	return rec
}

func TestApp_MemoryBookingRoundTrip(t *testing.T) {
	a := startApp(t)
	admin := model.User{ID: "ops", Role: model.RoleAdmin}
	rider := model.User{ID: "rider-1", Role: model.RoleCustomer}

	rec := call(t, a, http.MethodPost, "/api/v1/trips", admin, map[string]any{
		"origin": "Miami", "destination": "Orlando",
		"departure_date": time.Now().UTC().AddDate(0, 0, 7).Format(model.DateLayout),
		"departure_time": "08:15", "price_cents": 3500, "total_seats": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var trip model.Trip
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trip))

	rec = call(t, a, http.MethodPost, "/api/v1/bookings", rider, map[string]any{
		"trip_id":  trip.ID,
		"seat_ids": []uuid.UUID{trip.Seats[0].ID, trip.Seats[1].ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var booking model.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booking))
	assert.Equal(t, int64(7000), booking.TotalCents)

	rec = call(t, a, http.MethodGet, "/api/v1/bookings/mine", rider, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine model.BookingList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine.Upcoming, 1)

	rec = call(t, a, http.MethodPut, "/api/v1/bookings/"+booking.ID.String()+"/cancel", rider, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, a, http.MethodGet, "/health", rider, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
