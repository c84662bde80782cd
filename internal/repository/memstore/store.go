// Package memstore keeps trips and bookings in process memory.
//
// It honours the same contracts as the Postgres repositories: Do runs a
// transaction that either commits fully or leaves the state as it found it,
// and nested Do calls join the running transaction. A transaction holds the
// whole store, which is stricter than the per-trip row locks Postgres takes.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shiva/tripbook/internal/model"
)

type txKey struct{}

// Store is the shared state behind TripRepo and BookingRepo.
type Store struct {
	mu       sync.Mutex
	trips    map[uuid.UUID]model.Trip
	bookings map[uuid.UUID]model.Booking
}

// New returns an empty store.
func New() *Store {
	return &Store{
		trips:    make(map[uuid.UUID]model.Trip),
		bookings: make(map[uuid.UUID]model.Booking),
	}
}

// Trips returns the trip repository view of the store.
func (s *Store) Trips() *TripRepo { return &TripRepo{s: s} }

// Bookings returns the booking repository view of the store.
func (s *Store) Bookings() *BookingRepo { return &BookingRepo{s: s} }

// Do runs fn as one transaction. If fn fails every change it made is undone.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	trips, bookings := s.copyState()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.trips, s.bookings = trips, bookings
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// acquire locks the store unless ctx already runs inside its transaction.
func (s *Store) acquire(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) copyState() (map[uuid.UUID]model.Trip, map[uuid.UUID]model.Booking) {
	trips := make(map[uuid.UUID]model.Trip, len(s.trips))
	for id, t := range s.trips {
		trips[id] = t.Clone()
	}
	bookings := make(map[uuid.UUID]model.Booking, len(s.bookings))
	for id, b := range s.bookings {
		bookings[id] = b.Clone()
	}
	return trips, bookings
}

// ─── Trips ──────────────────────────────────────────────────

// TripRepo stores trip documents.
type TripRepo struct {
	s *Store
}

func (r *TripRepo) List(ctx context.Context, filter model.TripFilter) ([]model.Trip, error) {
	defer r.s.acquire(ctx)()

	origin := strings.ToLower(filter.Origin)
	destination := strings.ToLower(filter.Destination)

	trips := make([]model.Trip, 0)
	for _, t := range r.s.trips {
		if origin != "" && !strings.Contains(strings.ToLower(t.Origin), origin) {
			continue
		}
		if destination != "" && !strings.Contains(strings.ToLower(t.Destination), destination) {
			continue
		}
		if filter.Date != nil && !model.DateOf(t.DepartureDate).Equal(model.DateOf(*filter.Date)) {
			continue
		}
		trips = append(trips, t.Clone())
	}

	sort.Slice(trips, func(i, j int) bool {
		a, b := trips[i], trips[j]
		if !a.DepartureDate.Equal(b.DepartureDate) {
			return a.DepartureDate.Before(b.DepartureDate)
		}
		if a.DepartureTime != b.DepartureTime {
			return a.DepartureTime < b.DepartureTime
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return trips, nil
}

func (r *TripRepo) Get(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	defer r.s.acquire(ctx)()

	t, ok := r.s.trips[id]
	if !ok {
		return nil, model.TripNotFound(id)
	}
	clone := t.Clone()
	return &clone, nil
}

// GetForUpdate is Get; inside Do the caller already holds the store.
func (r *TripRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	return r.Get(ctx, id)
}

func (r *TripRepo) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Trip, error) {
	defer r.s.acquire(ctx)()

	out := make(map[uuid.UUID]model.Trip, len(ids))
	for _, id := range ids {
		if t, ok := r.s.trips[id]; ok {
			out[id] = t.Clone()
		}
	}
	return out, nil
}

func (r *TripRepo) Create(ctx context.Context, trip *model.Trip) error {
	defer r.s.acquire(ctx)()

	r.s.trips[trip.ID] = trip.Clone()
	return nil
}

func (r *TripRepo) Save(ctx context.Context, trip *model.Trip) error {
	defer r.s.acquire(ctx)()

	if _, ok := r.s.trips[trip.ID]; !ok {
		return model.TripNotFound(trip.ID)
	}
	r.s.trips[trip.ID] = trip.Clone()
	return nil
}

func (r *TripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.acquire(ctx)()

	if _, ok := r.s.trips[id]; !ok {
		return model.TripNotFound(id)
	}
	delete(r.s.trips, id)
	return nil
}

// ─── Bookings ───────────────────────────────────────────────

// BookingRepo stores the booking ledger.
type BookingRepo struct {
	s *Store
}

func (r *BookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	defer r.s.acquire(ctx)()

	if booking.IntentID != nil {
		for _, b := range r.s.bookings {
			if b.IntentID != nil && *b.IntentID == *booking.IntentID {
				return model.ErrDuplicateIntent
			}
		}
	}
	r.s.bookings[booking.ID] = booking.Clone()
	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	defer r.s.acquire(ctx)()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, model.BookingNotFound(id)
	}
	clone := b.Clone()
	return &clone, nil
}

func (r *BookingRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return r.Get(ctx, id)
}

func (r *BookingRepo) GetByIntent(ctx context.Context, intentID uuid.UUID) (*model.Booking, error) {
	defer r.s.acquire(ctx)()

	for _, b := range r.s.bookings {
		if b.IntentID != nil && *b.IntentID == intentID {
			clone := b.Clone()
			return &clone, nil
		}
	}
	return nil, model.NotFoundError{Resource: "booking intent", ID: intentID.String()}
}

func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	defer r.s.acquire(ctx)()

	out := make([]model.Booking, 0)
	for _, b := range r.s.bookings {
		if b.UserID == userID {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *BookingRepo) MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) error {
	defer r.s.acquire(ctx)()

	b, ok := r.s.bookings[id]
	if !ok {
		return model.BookingNotFound(id)
	}
	b.Status = model.StatusCancelled
	b.CancelledAt = &at
	r.s.bookings[id] = b
	return nil
}
