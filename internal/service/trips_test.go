package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/tripbook/internal/model"
)

func TestTripService_CreateBuildsSeatMap(t *testing.T) {
	f := newFixture(t)

	trip := f.addTrip(t, 4, 4500, 10)

	assert.Equal(t, 4, trip.TotalSeats)
	require.Len(t, trip.Seats, 4)
	assert.Equal(t, "Seat 1", trip.Seats[0].Label)
	assert.Equal(t, "Seat 4", trip.Seats[3].Label)
	for _, s := range trip.Seats {
		assert.False(t, s.Booked)
		assert.Nil(t, s.BookedBy)
	}
	assert.Equal(t, 1, f.events.count(func(e any) bool {
		c, ok := e.(*model.TripChanged)
		return ok && c.TripID == trip.ID && c.Kind == model.TripCreated
	}))
}

func TestTripService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	valid := TripInput{
		Origin:        "Chicago",
		Destination:   "Los Angeles",
		DepartureDate: "2026-12-18",
		DepartureTime: "10:30",
		PriceCents:    12000,
		TotalSeats:    40,
	}

	tests := []struct {
		name   string
		mutate func(*TripInput)
		field  string
	}{
		{"blank origin", func(in *TripInput) { in.Origin = "   " }, "origin"},
		{"blank destination", func(in *TripInput) { in.Destination = "" }, "destination"},
		{"bad date", func(in *TripInput) { in.DepartureDate = "18/12/2026" }, "departure_date"},
		{"bad time", func(in *TripInput) { in.DepartureTime = "25:00" }, "departure_time"},
		{"short time", func(in *TripInput) { in.DepartureTime = "9:00" }, "departure_time"},
		{"negative price", func(in *TripInput) { in.PriceCents = -1 }, "price_cents"},
		{"no seats", func(in *TripInput) { in.TotalSeats = 0 }, "total_seats"},
		{"too many seats", func(in *TripInput) { in.TotalSeats = model.MaxSeatsPerTrip + 1 }, "total_seats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			_, err := f.trips.Create(context.Background(), in)

			var verr model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := f.trips.Create(context.Background(), valid)
	assert.NoError(t, err)
}

func TestTripService_ListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTrip(t, 2, 1000, 1)
	f.addTrip(t, 2, 1000, 2)

	all, err := f.trips.List(ctx, model.TripFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	day := model.DateOf(f.now.AddDate(0, 0, 2))
	byDate, err := f.trips.List(ctx, model.TripFilter{Origin: "  york ", Date: &day})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.True(t, byDate[0].DepartureDate.Equal(day))

	none, err := f.trips.List(ctx, model.TripFilter{Destination: "Denver"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTripService_UpdatePartial(t *testing.T) {
	f := newFixture(t)
	trip := f.addTrip(t, 3, 1000, 5)
	f.book(t, alice, trip, 1)

	price := int64(2500)
	clock := "18:45"
	updated, err := f.trips.Update(context.Background(), trip.ID, TripUpdate{
		PriceCents:    &price,
		DepartureTime: &clock,
	})
	require.NoError(t, err)

	assert.Equal(t, price, updated.PriceCents)
	assert.Equal(t, clock, updated.DepartureTime)
	assert.Equal(t, trip.Origin, updated.Origin)
	assert.True(t, updated.Seats[1].Booked, "update must not touch seat state")
}

func TestTripService_UpdateKeepsBookingPrice(t *testing.T) {
	f := newFixture(t)
	trip := f.addTrip(t, 3, 1000, 5)
	b := f.book(t, alice, trip, 0)

	price := int64(9999)
	_, err := f.trips.Update(context.Background(), trip.ID, TripUpdate{PriceCents: &price})
	require.NoError(t, err)

	got, err := f.ledger.GetBooking(context.Background(), b.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.TotalCents)
	assert.Equal(t, int64(1000), got.Trip.PriceCents)
}

func TestTripService_UpdateResizes(t *testing.T) {
	f := newFixture(t)
	trip := f.addTrip(t, 3, 1000, 5)
	ctx := context.Background()

	grow := 5
	grown, err := f.trips.Update(ctx, trip.ID, TripUpdate{TotalSeats: &grow})
	require.NoError(t, err)
	assert.Equal(t, 5, grown.TotalSeats)
	assert.Equal(t, "Seat 5", grown.Seats[4].Label)
	assert.Equal(t, trip.Seats[0].ID, grown.Seats[0].ID, "existing seats keep their ids")

	f.book(t, bob, grown, 4)
	shrink := 2
	shrunk, err := f.trips.Update(ctx, trip.ID, TripUpdate{TotalSeats: &shrink})
	require.NoError(t, err)
	assert.Equal(t, 3, shrunk.TotalSeats)
	assert.Equal(t, []string{"Seat 1", "Seat 2", "Seat 5"}, labels(shrunk.Seats))
	f.requireSeatLedgerConsistent(t, trip.ID, bob)
}

func TestTripService_UpdateValidationLeavesTrip(t *testing.T) {
	f := newFixture(t)
	trip := f.addTrip(t, 3, 1000, 5)

	blank := ""
	grow := 10
	_, err := f.trips.Update(context.Background(), trip.ID, TripUpdate{Origin: &blank, TotalSeats: &grow})
	require.ErrorIs(t, err, model.ErrValidation)

	assert.Equal(t, 3, f.trip(t, trip.ID).TotalSeats)
}

func TestTripService_UnknownTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	price := int64(1)

	_, err := f.trips.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.trips.Update(ctx, uuid.New(), TripUpdate{PriceCents: &price})
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.ErrorIs(t, f.trips.Delete(ctx, uuid.New()), model.ErrNotFound)
}

func TestTripService_Delete(t *testing.T) {
	f := newFixture(t)
	trip := f.addTrip(t, 2, 1000, 5)
	ctx := context.Background()

	require.NoError(t, f.trips.Delete(ctx, trip.ID))

	_, err := f.trips.Get(ctx, trip.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, 1, f.events.count(func(e any) bool {
		c, ok := e.(*model.TripChanged)
		return ok && c.Kind == model.TripDeleted
	}))
}

// countingCache keeps one result set per generation, the way the Redis
// cache keys entries.
type countingCache struct {
	NopCache
	gen           int
	invalidations int
	stored        map[string][]model.Trip
	hit           bool
}

func (c *countingCache) slot() string { return strconv.Itoa(c.gen) }

func (c *countingCache) GetList(context.Context, model.TripFilter) ([]model.Trip, string, bool) {
	trips, ok := c.stored[c.slot()]
	return trips, c.slot(), ok
}

func (c *countingCache) SetList(_ context.Context, slot string, trips []model.Trip) {
	if c.stored == nil {
		c.stored = make(map[string][]model.Trip)
	}
	c.stored[slot] = trips
	c.hit = slot == c.slot()
}

func (c *countingCache) Invalidate(context.Context) {
	c.invalidations++
	c.gen++
	c.hit = false
}

// racingTrips invalidates the cache right after the database read, as a
// concurrent trip change would.
type racingTrips struct {
	TripRepository
	cache *countingCache
	reads int
}

func (r *racingTrips) List(ctx context.Context, filter model.TripFilter) ([]model.Trip, error) {
	r.reads++
	trips, err := r.TripRepository.List(ctx, filter)
	if r.reads == 1 {
		r.cache.Invalidate(ctx)
	}
	return trips, err
}

func TestTripService_CacheIsInvalidatedOnChange(t *testing.T) {
	f := newFixture(t)
	cache := &countingCache{}
	f.trips = NewTripService(f.store.Trips(), f.seats, f.store, cache, f.events, func() time.Time { return f.now }, zerolog.Nop())
	ctx := context.Background()

	trip := f.addTrip(t, 2, 1000, 5)
	first, err := f.trips.List(ctx, model.TripFilter{})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, cache.hit)

	price := int64(1500)
	_, err = f.trips.Update(ctx, trip.ID, TripUpdate{PriceCents: &price})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.invalidations)

	again, err := f.trips.List(ctx, model.TripFilter{})
	require.NoError(t, err)
	assert.Equal(t, price, again[0].PriceCents)
}

func TestTripService_FillAfterInvalidateIsNotServed(t *testing.T) {
	f := newFixture(t)
	f.addTrip(t, 2, 1000, 5)
	cache := &countingCache{}
	repo := &racingTrips{TripRepository: f.store.Trips(), cache: cache}
	svc := NewTripService(repo, f.seats, f.store, cache, f.events, func() time.Time { return f.now }, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.List(ctx, model.TripFilter{})
	require.NoError(t, err)
	assert.False(t, cache.hit, "rows read before the change were filled into the new generation")

	_, err = svc.List(ctx, model.TripFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.reads)

	_, err = svc.List(ctx, model.TripFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.reads, "second fill landed in the current generation")
}

func labels(seats []model.Seat) []string {
	out := make([]string, len(seats))
	for i, s := range seats {
		out[i] = s.Label
	}
	return out
}
