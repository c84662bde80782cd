// Package model contains the domain types of the trip booking service.
// Trips own their seats; bookings keep immutable copies of what they claimed.
package model

import (
	"time"

	"github.com/google/uuid"
)

// ─── Enums ──────────────────────────────────────────────────

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentPayPal PaymentMethod = "paypal"
)

// Valid reports whether m is one of the accepted payment tags.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentPayPal
}

// ─── Identity ───────────────────────────────────────────────

// User is the caller as asserted by the identity provider.
type User struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

// IsAdmin reports whether the user holds the administrator role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ─── Trips & seats ──────────────────────────────────────────

// DateLayout is the wire format of a departure date.
const DateLayout = "2006-01-02"

// Seat is one bookable unit of a trip. It only exists inside its Trip.
type Seat struct {
	ID       uuid.UUID `json:"id"`
	Label    string    `json:"label"`
	Booked   bool      `json:"booked"`
	BookedBy *string   `json:"booked_by,omitempty"`
}

// Trip is a scheduled route with a price and an ordered seat inventory.
type Trip struct {
	ID            uuid.UUID `json:"id"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureDate time.Time `json:"departure_date"` // midnight UTC
	DepartureTime string    `json:"departure_time"` // "HH:MM"
	PriceCents    int64     `json:"price_cents"`
	TotalSeats    int       `json:"total_seats"`
	Seats         []Seat    `json:"seats"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TripFilter narrows a trip search. Zero values match everything.
type TripFilter struct {
	Origin      string
	Destination string
	Date        *time.Time
}

// ─── Bookings ───────────────────────────────────────────────

// SeatSnapshot is the seat as it was when the booking claimed it.
type SeatSnapshot struct {
	SeatID uuid.UUID `json:"seat_id"`
	Label  string    `json:"label"`
}

// TripSnapshot keeps a booking displayable after its trip changes or disappears.
type TripSnapshot struct {
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureDate time.Time `json:"departure_date"`
	DepartureTime string    `json:"departure_time"`
	PriceCents    int64     `json:"price_cents"`
}

// Booking is a user's claim over one or more seats on one trip.
type Booking struct {
	ID            uuid.UUID      `json:"id"`
	IntentID      *uuid.UUID     `json:"intent_id,omitempty"`
	UserID        string         `json:"user_id"`
	TripID        uuid.UUID      `json:"trip_id"`
	Trip          TripSnapshot   `json:"trip"`
	TripRemoved   bool           `json:"trip_removed,omitempty"`
	Seats         []SeatSnapshot `json:"seats"`
	TotalCents    int64          `json:"total_cents"`
	PaymentMethod PaymentMethod  `json:"payment_method"`
	Status        BookingStatus  `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	CancelledAt   *time.Time     `json:"cancelled_at,omitempty"`
}

// SeatIDs returns the identifiers of the seats the booking holds.
func (b *Booking) SeatIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(b.Seats))
	for i, s := range b.Seats {
		ids[i] = s.SeatID
	}
	return ids
}

// OwnedBy reports whether u may act on the booking.
func (b *Booking) OwnedBy(u User) bool {
	return b.UserID == u.ID || u.IsAdmin()
}

// BookingList is a user's bookings split by departure.
type BookingList struct {
	Upcoming []Booking `json:"upcoming"`
	Past     []Booking `json:"past"`
}
