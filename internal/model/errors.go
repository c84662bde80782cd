package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ─── Error taxonomy ─────────────────────────────────────────

var (
	ErrNotFound         = errors.New("not found")
	ErrSeatUnavailable  = errors.New("seat unavailable")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	ErrValidation       = errors.New("validation failed")

	// ErrDuplicateIntent is returned by storage when a booking intent id is
	// already taken by another booking.
	ErrDuplicateIntent = errors.New("booking intent already used")
)

// NotFoundError names the missing resource. It matches ErrNotFound.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// SeatUnavailableError identifies the seat that is already booked.
type SeatUnavailableError struct {
	SeatID uuid.UUID
	Label  string
}

func (e SeatUnavailableError) Error() string {
	return fmt.Sprintf("%s is already booked", e.Label)
}

func (e SeatUnavailableError) Is(target error) bool { return target == ErrSeatUnavailable }

// ValidationError describes malformed or missing input.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e ValidationError) Is(target error) bool { return target == ErrValidation }

// TripNotFound is shorthand for a NotFoundError on a trip.
func TripNotFound(id uuid.UUID) error {
	return NotFoundError{Resource: "trip", ID: id.String()}
}

// BookingNotFound is shorthand for a NotFoundError on a booking.
func BookingNotFound(id uuid.UUID) error {
	return NotFoundError{Resource: "booking", ID: id.String()}
}
