package handler

import (
	"net/http"

	"github.com/shiva/tripbook/internal/model"
	"github.com/shiva/tripbook/internal/service"
)

// TripHandler handles trip catalogue HTTP requests.
type TripHandler struct {
	trips *service.TripService
}

// NewTripHandler creates a new trip handler.
func NewTripHandler(trips *service.TripService) *TripHandler {
	return &TripHandler{trips: trips}
}

// ListTrips handles GET /api/v1/trips?origin=&destination=&date=
//
// All filters are optional. origin and destination match any part of the
// name, ignoring case; date must be YYYY-MM-DD.
func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.TripFilter{
		Origin:      q.Get("origin"),
		Destination: q.Get("destination"),
	}
	if raw := q.Get("date"); raw != "" {
		date, err := service.ParseDate(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.Date = &date
	}

	trips, err := h.trips.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// GetTrip handles GET /api/v1/trips/{id}
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	trip, err := h.trips.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// CreateTrip handles POST /api/v1/trips (admin)
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var in service.TripInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	trip, err := h.trips.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

// UpdateTrip handles PUT /api/v1/trips/{id} (admin)
//
// Only the fields present in the body change. A new total_seats never drops
// a booked seat, so the returned trip may keep more seats than asked for.
func (h *TripHandler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.TripUpdate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	trip, err := h.trips.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// DeleteTrip handles DELETE /api/v1/trips/{id} (admin)
//
// Bookings on the trip are kept and keep showing the trip as booked.
func (h *TripHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.trips.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Trip deleted.",
		"id":      id.String(),
	})
}
