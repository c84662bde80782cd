package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shiva/tripbook/internal/model"
	"github.com/shiva/tripbook/internal/service"
	"github.com/shiva/tripbook/internal/ticket"
)

// BookingHandler handles booking HTTP requests.
type BookingHandler struct {
	ledger *service.BookingLedger
	now    service.Clock
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(ledger *service.BookingLedger, now service.Clock) *BookingHandler {
	return &BookingHandler{ledger: ledger, now: now}
}

type createBookingRequest struct {
	TripID        uuid.UUID           `json:"trip_id"`
	SeatIDs       []uuid.UUID         `json:"seat_ids"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
}

// CreateBooking handles POST /api/v1/bookings
//
// Books every listed seat or none. An optional Idempotency-Key header (UUID)
// makes retries safe: repeating it returns the first booking.
//
// Response codes:
//
//	201 - Booking confirmed
//	400 - Invalid body, payment method or Idempotency-Key
//	404 - Trip or seat not found
//	409 - A seat is already booked (message names it)
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var body createBookingRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	req := service.BookingRequest{
		User:          user,
		TripID:        body.TripID,
		SeatIDs:       body.SeatIDs,
		PaymentMethod: body.PaymentMethod,
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		intent, err := uuid.Parse(key)
		if err != nil {
			writeError(w, r, model.ValidationError{Field: "Idempotency-Key", Msg: "must be a UUID"})
			return
		}
		req.IntentID = &intent
	}

	booking, err := h.ledger.CreateBooking(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// ListMine handles GET /api/v1/bookings/mine
//
// Returns {upcoming, past}. Cancelled bookings are always past.
func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.ledger.ListForUser(r.Context(), user, h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetBooking handles GET /api/v1/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	booking, err := h.ledger.GetBooking(r.Context(), id, user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// Ticket handles GET /api/v1/bookings/{id}/ticket
//
// Streams the booking's PDF e-ticket. Same access rule as GetBooking.
func (h *BookingHandler) Ticket(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	booking, err := h.ledger.GetBooking(r.Context(), id, user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pdf, err := ticket.Render(booking)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", ticket.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+ticket.Filename(booking)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
