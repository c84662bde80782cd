package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shiva/tripbook/internal/model"
)

// TripInput carries the fields of a new trip.
type TripInput struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"` // YYYY-MM-DD
	DepartureTime string `json:"departure_time"` // HH:MM
	PriceCents    int64  `json:"price_cents"`
	TotalSeats    int    `json:"total_seats"`
}

// TripUpdate carries a partial edit. Nil fields are left unchanged.
type TripUpdate struct {
	Origin        *string `json:"origin"`
	Destination   *string `json:"destination"`
	DepartureDate *string `json:"departure_date"`
	DepartureTime *string `json:"departure_time"`
	PriceCents    *int64  `json:"price_cents"`
	TotalSeats    *int    `json:"total_seats"`
}

// ─── TripService ────────────────────────────────────────────

// TripService is the trip catalogue: search plus administrative edits.
type TripService struct {
	trips  TripRepository
	seats  *SeatStore
	tx     TxManager
	cache  TripCache
	events EventPublisher
	now    Clock
	log    zerolog.Logger
}

// NewTripService creates a trip service.
func NewTripService(
	trips TripRepository,
	seats *SeatStore,
	tx TxManager,
	cache TripCache,
	events EventPublisher,
	now Clock,
	logger zerolog.Logger,
) *TripService {
	if cache == nil {
		cache = NopCache{}
	}
	return &TripService{
		trips:  trips,
		seats:  seats,
		tx:     tx,
		cache:  cache,
		events: events,
		now:    now,
		log:    logger.With().Str("component", "trips").Logger(),
	}
}

// List returns the trips matching filter, ordered by departure date then time.
func (s *TripService) List(ctx context.Context, filter model.TripFilter) ([]model.Trip, error) {
	filter.Origin = strings.TrimSpace(filter.Origin)
	filter.Destination = strings.TrimSpace(filter.Destination)

	cached, slot, ok := s.cache.GetList(ctx, filter)
	if ok {
		return cached, nil
	}

	trips, err := s.trips.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	s.cache.SetList(ctx, slot, trips)
	return trips, nil
}

// Get returns one trip with its full seat map.
func (s *TripService) Get(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	return s.trips.Get(ctx, id)
}

// Create validates in and stores a new trip with seats "Seat 1".."Seat N".
func (s *TripService) Create(ctx context.Context, in TripInput) (*model.Trip, error) {
	origin, err := requireText("origin", in.Origin)
	if err != nil {
		return nil, err
	}
	destination, err := requireText("destination", in.Destination)
	if err != nil {
		return nil, err
	}
	date, err := ParseDate(in.DepartureDate)
	if err != nil {
		return nil, err
	}
	if err := validateClock(in.DepartureTime); err != nil {
		return nil, err
	}
	if err := validatePrice(in.PriceCents); err != nil {
		return nil, err
	}
	if err := validateSeatTotal(in.TotalSeats); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	trip := &model.Trip{
		ID:            uuid.New(),
		Origin:        origin,
		Destination:   destination,
		DepartureDate: date,
		DepartureTime: in.DepartureTime,
		PriceCents:    in.PriceCents,
		TotalSeats:    in.TotalSeats,
		Seats:         model.NewSeats(in.TotalSeats),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}

	s.changed(ctx, trip.ID, model.TripCreated)
	s.log.Info().Str("trip_id", trip.ID.String()).Msgf("trip created: %s → %s", origin, destination)
	return trip, nil
}

// Update applies the non-nil fields of in. A new seat total goes through
// SeatStore.Resize within the same transaction.
func (s *TripService) Update(ctx context.Context, id uuid.UUID, in TripUpdate) (*model.Trip, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var updated *model.Trip
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		if in.TotalSeats != nil {
			if _, err := s.seats.Resize(ctx, id, *in.TotalSeats); err != nil {
				return err
			}
		}

		trip, err := s.trips.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.Origin != nil {
			trip.Origin = strings.TrimSpace(*in.Origin)
		}
		if in.Destination != nil {
			trip.Destination = strings.TrimSpace(*in.Destination)
		}
		if in.DepartureDate != nil {
			trip.DepartureDate, _ = ParseDate(*in.DepartureDate)
		}
		if in.DepartureTime != nil {
			trip.DepartureTime = *in.DepartureTime
		}
		if in.PriceCents != nil {
			trip.PriceCents = *in.PriceCents
		}
		trip.UpdatedAt = s.now().UTC()

		if err := s.trips.Save(ctx, trip); err != nil {
			return fmt.Errorf("update trip %s: %w", id, err)
		}
		updated = trip
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.changed(ctx, id, model.TripUpdated)
	return updated, nil
}

// Delete removes a trip. Bookings that reference it keep their trip snapshot.
func (s *TripService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.trips.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, id, model.TripDeleted)
	s.log.Info().Str("trip_id", id.String()).Msg("trip deleted")
	return nil
}

func (s *TripService) changed(ctx context.Context, id uuid.UUID, kind model.TripChangeKind) {
	s.cache.Invalidate(ctx)
	publish(ctx, s.log, s.events, &model.TripChanged{
		TripID:     id,
		Kind:       kind,
		OccurredAt: s.now().UTC(),
	})
}

// ─── Validation ─────────────────────────────────────────────

func (u TripUpdate) validate() error {
	if u.Origin != nil {
		if _, err := requireText("origin", *u.Origin); err != nil {
			return err
		}
	}
	if u.Destination != nil {
		if _, err := requireText("destination", *u.Destination); err != nil {
			return err
		}
	}
	if u.DepartureDate != nil {
		if _, err := ParseDate(*u.DepartureDate); err != nil {
			return err
		}
	}
	if u.DepartureTime != nil {
		if err := validateClock(*u.DepartureTime); err != nil {
			return err
		}
	}
	if u.PriceCents != nil {
		if err := validatePrice(*u.PriceCents); err != nil {
			return err
		}
	}
	if u.TotalSeats != nil {
		return validateSeatTotal(*u.TotalSeats)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD departure date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, model.ValidationError{Field: "departure_date", Msg: "must be YYYY-MM-DD"}
	}
	return d, nil
}

func requireText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", model.ValidationError{Field: field, Msg: "is required"}
	}
	return v, nil
}

func validateClock(s string) error {
	if len(s) != 5 {
		return model.ValidationError{Field: "departure_time", Msg: "must be HH:MM"}
	}
	if _, err := time.Parse("15:04", s); err != nil {
		return model.ValidationError{Field: "departure_time", Msg: "must be HH:MM"}
	}
	return nil
}

func validatePrice(cents int64) error {
	if cents < 0 {
		return model.ValidationError{Field: "price_cents", Msg: "must not be negative"}
	}
	return nil
}

func validateSeatTotal(n int) error {
	if n < 1 || n > model.MaxSeatsPerTrip {
		return model.ValidationError{
			Field: "total_seats",
			Msg:   fmt.Sprintf("must be between 1 and %d", model.MaxSeatsPerTrip),
		}
	}
	return nil
}

// publish sends event and only logs a failure: the state change it
// describes has already committed.
func publish(ctx context.Context, log zerolog.Logger, pub EventPublisher, event any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, event); err != nil {
		log.Error().Err(err).Msgf("publish %T failed", event)
	}
}
