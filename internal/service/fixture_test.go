package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shiva/tripbook/internal/model"
	"github.com/shiva/tripbook/internal/repository/memstore"
)

var (
	alice = model.User{ID: "user-alice", Role: model.RoleCustomer}
	bob   = model.User{ID: "user-bob", Role: model.RoleCustomer}
	admin = model.User{ID: "user-admin", Role: model.RoleAdmin}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count(match func(any) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if match(e) {
			n++
		}
	}
	return n
}

type fixture struct {
	store  *memstore.Store
	seats  *SeatStore
	trips  *TripService
	ledger *BookingLedger
	events *recordingPublisher
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memstore.New(),
		events: &recordingPublisher{},
		now:    time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	logger := zerolog.Nop()

	f.seats = NewSeatStore(f.store.Trips(), f.store, logger)
	f.trips = NewTripService(f.store.Trips(), f.seats, f.store, nil, f.events, clock, logger)
	f.ledger = NewBookingLedger(f.store.Bookings(), f.store.Trips(), f.seats, f.store, f.events, clock, logger)
	return f
}

// addTrip creates a trip departing daysAhead days after the fixture clock.
func (f *fixture) addTrip(t *testing.T, seats int, priceCents int64, daysAhead int) *model.Trip {
	t.Helper()
	date := f.now.AddDate(0, 0, daysAhead).Format(model.DateLayout)
	trip, err := f.trips.Create(context.Background(), TripInput{
		Origin:        "New York",
		Destination:   "Boston",
		DepartureDate: date,
		DepartureTime: "09:00",
		PriceCents:    priceCents,
		TotalSeats:    seats,
	})
	require.NoError(t, err)
	return trip
}

func (f *fixture) book(t *testing.T, user model.User, trip *model.Trip, seats ...int) *model.Booking {
	t.Helper()
	b, err := f.ledger.CreateBooking(context.Background(), BookingRequest{
		User:    user,
		TripID:  trip.ID,
		SeatIDs: seatIDs(trip, seats...),
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) trip(t *testing.T, id uuid.UUID) *model.Trip {
	t.Helper()
	trip, err := f.trips.Get(context.Background(), id)
	require.NoError(t, err)
	return trip
}

// seatIDs picks seats by zero-based position.
func seatIDs(trip *model.Trip, positions ...int) []uuid.UUID {
	ids := make([]uuid.UUID, len(positions))
	for i, p := range positions {
		ids[i] = trip.Seats[p].ID
	}
	return ids
}

// requireSeatLedgerConsistent checks that booked seats and confirmed
// booking snapshots agree for the trip.
func (f *fixture) requireSeatLedgerConsistent(t *testing.T, tripID uuid.UUID, users ...model.User) {
	t.Helper()
	trip := f.trip(t, tripID)

	held := make(map[uuid.UUID]int)
	for _, u := range users {
		bookings, err := f.store.Bookings().ListByUser(context.Background(), u.ID)
		require.NoError(t, err)
		for _, b := range bookings {
			if b.TripID != tripID || b.Status != model.StatusConfirmed {
				continue
			}
			for _, s := range b.Seats {
				held[s.SeatID]++
			}
		}
	}

	for _, s := range trip.Seats {
		if s.Booked {
			require.Equal(t, 1, held[s.ID], "%s booked without exactly one booking", s.Label)
		} else {
			require.Zero(t, held[s.ID], "%s free but held by a booking", s.Label)
		}
	}
}
