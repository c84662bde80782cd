package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// MaxSeatsPerTrip caps a single trip's inventory.
const MaxSeatsPerTrip = 1000

func seatLabel(n int) string {
	return fmt.Sprintf("Seat %d", n)
}

// NewSeats returns n unbooked seats labelled "Seat 1" through "Seat n".
func NewSeats(n int) []Seat {
	seats := make([]Seat, 0, n)
	for i := 1; i <= n; i++ {
		seats = append(seats, Seat{ID: uuid.New(), Label: seatLabel(i)})
	}
	return seats
}

func (t *Trip) seatIndex() map[uuid.UUID]int {
	idx := make(map[uuid.UUID]int, len(t.Seats))
	for i, s := range t.Seats {
		idx[s.ID] = i
	}
	return idx
}

// ClaimSeats books every requested seat for userID, or none of them.
//
// Duplicate identifiers are collapsed. Every identifier must resolve to a seat
// of this trip (NotFoundError otherwise) and no resolved seat may already be
// booked (SeatUnavailableError otherwise). The trip is untouched on failure.
func (t *Trip) ClaimSeats(ids []uuid.UUID, userID string) ([]SeatSnapshot, error) {
	if len(ids) == 0 {
		return nil, ValidationError{Field: "seat_ids", Msg: "at least one seat is required"}
	}

	idx := t.seatIndex()
	seen := make(map[uuid.UUID]struct{}, len(ids))
	positions := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		pos, ok := idx[id]
		if !ok {
			return nil, NotFoundError{Resource: "seat", ID: id.String()}
		}
		positions = append(positions, pos)
	}

	for _, pos := range positions {
		if s := t.Seats[pos]; s.Booked {
			return nil, SeatUnavailableError{SeatID: s.ID, Label: s.Label}
		}
	}

	snapshots := make([]SeatSnapshot, 0, len(positions))
	for _, pos := range positions {
		by := userID
		t.Seats[pos].Booked = true
		t.Seats[pos].BookedBy = &by
		snapshots = append(snapshots, SeatSnapshot{SeatID: t.Seats[pos].ID, Label: t.Seats[pos].Label})
	}
	return snapshots, nil
}

// ReleaseSeats marks the listed seats unbooked. Identifiers that are not on
// the trip are ignored, so releasing twice is harmless. It returns how many
// seats changed state.
func (t *Trip) ReleaseSeats(ids []uuid.UUID) int {
	idx := t.seatIndex()
	released := 0
	for _, id := range ids {
		pos, ok := idx[id]
		if !ok {
			continue
		}
		if t.Seats[pos].Booked {
			released++
		}
		t.Seats[pos].Booked = false
		t.Seats[pos].BookedBy = nil
	}
	return released
}

// Resize grows or shrinks the seat inventory towards n.
//
// Growth appends unbooked seats labelled from the current count + 1, skipping
// labels that are still in use. Shrinking keeps seats[0..n) plus every booked
// seat beyond n, so a booked seat is never dropped and the trip may stay above
// n. TotalSeats always ends equal to the number of seats kept.
func (t *Trip) Resize(n int) {
	switch {
	case n > len(t.Seats):
		used := make(map[string]struct{}, len(t.Seats))
		for _, s := range t.Seats {
			used[s.Label] = struct{}{}
		}
		next := len(t.Seats) + 1
		for len(t.Seats) < n {
			label := seatLabel(next)
			next++
			if _, taken := used[label]; taken {
				continue
			}
			t.Seats = append(t.Seats, Seat{ID: uuid.New(), Label: label})
		}
	case n < len(t.Seats):
		kept := make([]Seat, 0, n)
		for i, s := range t.Seats {
			if i < n || s.Booked {
				kept = append(kept, s)
			}
		}
		t.Seats = kept
	}
	t.TotalSeats = len(t.Seats)
}

// BookedCount returns the number of booked seats.
func (t *Trip) BookedCount() int {
	n := 0
	for _, s := range t.Seats {
		if s.Booked {
			n++
		}
	}
	return n
}

// Snapshot captures the fields a booking keeps about its trip.
func (t *Trip) Snapshot() TripSnapshot {
	return TripSnapshot{
		Origin:        t.Origin,
		Destination:   t.Destination,
		DepartureDate: t.DepartureDate,
		DepartureTime: t.DepartureTime,
		PriceCents:    t.PriceCents,
	}
}

// Clone returns a deep copy of the trip.
func (t Trip) Clone() Trip {
	seats := make([]Seat, len(t.Seats))
	for i, s := range t.Seats {
		seats[i] = s
		if s.BookedBy != nil {
			by := *s.BookedBy
			seats[i].BookedBy = &by
		}
	}
	t.Seats = seats
	return t
}

// Clone returns a deep copy of the booking.
func (b Booking) Clone() Booking {
	b.Seats = append([]SeatSnapshot(nil), b.Seats...)
	if b.IntentID != nil {
		id := *b.IntentID
		b.IntentID = &id
	}
	if b.CancelledAt != nil {
		at := *b.CancelledAt
		b.CancelledAt = &at
	}
	return b
}

// ─── Upcoming / past ────────────────────────────────────────

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PartitionBookings splits bookings into upcoming and past as of now.
//
// A booking is upcoming when it is confirmed and its trip departs today or
// later; everything else, including cancelled bookings for future trips, is
// past. Both lists are ordered newest booking first.
func PartitionBookings(bookings []Booking, now time.Time) BookingList {
	sorted := append([]Booking(nil), bookings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	today := DateOf(now)
	list := BookingList{Upcoming: []Booking{}, Past: []Booking{}}
	for _, b := range sorted {
		departs := DateOf(b.Trip.DepartureDate)
		if b.Status == StatusConfirmed && !departs.Before(today) {
			list.Upcoming = append(list.Upcoming, b)
		} else {
			list.Past = append(list.Past, b)
		}
	}
	return list
}
