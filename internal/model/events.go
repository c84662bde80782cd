package model

import (
	"time"

	"github.com/google/uuid"
)

// Events are published on the event bus after the owning transaction
// commits. Each type travels on its own topic, named after the type.

// BookingConfirmed is published when a booking claims its seats.
type BookingConfirmed struct {
	BookingID  uuid.UUID      `json:"booking_id"`
	UserID     string         `json:"user_id"`
	TripID     uuid.UUID      `json:"trip_id"`
	Seats      []SeatSnapshot `json:"seats"`
	TotalCents int64          `json:"total_cents"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// BookingCancelled is published when a booking is cancelled. SeatsFreed is
// zero when the trip had already been deleted.
type BookingCancelled struct {
	BookingID  uuid.UUID `json:"booking_id"`
	UserID     string    `json:"user_id"`
	TripID     uuid.UUID `json:"trip_id"`
	SeatsFreed int       `json:"seats_freed"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TripChangeKind says what happened to a trip.
type TripChangeKind string

const (
	TripCreated TripChangeKind = "created"
	TripUpdated TripChangeKind = "updated"
	TripDeleted TripChangeKind = "deleted"
)

// TripChanged is published on every administrative trip edit. Consumers use
// it to drop cached search results.
type TripChanged struct {
	TripID     uuid.UUID      `json:"trip_id"`
	Kind       TripChangeKind `json:"kind"`
	OccurredAt time.Time      `json:"occurred_at"`
}
