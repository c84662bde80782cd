package handler

import (
	"net/http"

	"github.com/shiva/tripbook/internal/service"
)

// CancelHandler handles booking cancellation HTTP requests.
type CancelHandler struct {
	ledger *service.BookingLedger
}

// NewCancelHandler creates a new cancel handler.
func NewCancelHandler(ledger *service.BookingLedger) *CancelHandler {
	return &CancelHandler{ledger: ledger}
}

// CancelBooking handles PUT /api/v1/bookings/{id}/cancel
//
// Cancels a confirmed booking and frees its seats. The owner or an
// administrator may cancel.
//
// Response codes:
//
//	200 - Cancellation successful (returns the cancelled booking)
//	400 - Invalid booking id
//	403 - Caller does not own the booking
//	404 - Booking not found
//	409 - Booking already cancelled
func (h *CancelHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	booking, err := h.ledger.CancelBooking(r.Context(), id, user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}
