// Package handler contains HTTP request handlers for the trip booking API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/shiva/tripbook/internal/auth"
	"github.com/shiva/tripbook/internal/model"
)

// writeJSON is a helper that writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeMessage(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": msg,
	})
}

// writeError maps a service error onto the API's error body.
//
// Response codes:
//
//	400 - validation_error
//	403 - forbidden
//	404 - not_found
//	409 - seat_unavailable, already_cancelled
//	500 - internal_error (details are logged, not returned)
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeMessage(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not_found", notFoundMessage(err))
	case errors.Is(err, model.ErrSeatUnavailable):
		writeMessage(w, http.StatusConflict, "seat_unavailable", seatMessage(err))
	case errors.Is(err, model.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "forbidden", "You may not access this booking.")
	case errors.Is(err, model.ErrAlreadyCancelled):
		writeMessage(w, http.StatusConflict, "already_cancelled", "This booking is already cancelled.")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeMessage(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
	}
}

func notFoundMessage(err error) string {
	var nf model.NotFoundError
	if errors.As(err, &nf) {
		return nf.Error()
	}
	return "Resource not found."
}

func seatMessage(err error) string {
	var su model.SeatUnavailableError
	if errors.As(err, &su) {
		return su.Error()
	}
	return "A requested seat is already booked."
}

// decodeJSON reads the request body into dst. Unknown fields are rejected.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return model.ValidationError{Field: "body", Msg: "invalid JSON: " + err.Error()}
	}
	return nil
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, model.ValidationError{Field: "id", Msg: "must be a UUID"}
	}
	return id, nil
}

// currentUser returns the caller set by middleware.Authenticate.
func currentUser(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	return u, ok
}
