package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shiva/tripbook/internal/model"
)

// BookingRequest is a customer's request to book seats on a trip.
type BookingRequest struct {
	User          model.User
	TripID        uuid.UUID
	SeatIDs       []uuid.UUID
	PaymentMethod model.PaymentMethod
	// IntentID makes retries safe: a second request with the same intent
	// returns the first booking instead of claiming again.
	IntentID *uuid.UUID
}

// ─── BookingLedger ──────────────────────────────────────────

// BookingLedger records who booked which seats and drives the booking
// lifecycle: confirmed → cancelled, exactly once.
//
// Creating a booking claims the seats and writes the booking in one
// transaction, so a failure after the claim rolls the claim back and no
// seat is ever held without a booking.
type BookingLedger struct {
	bookings BookingRepository
	trips    TripRepository
	seats    *SeatStore
	tx       TxManager
	events   EventPublisher
	now      Clock
	log      zerolog.Logger
}

// NewBookingLedger creates a booking ledger.
func NewBookingLedger(
	bookings BookingRepository,
	trips TripRepository,
	seats *SeatStore,
	tx TxManager,
	events EventPublisher,
	now Clock,
	logger zerolog.Logger,
) *BookingLedger {
	return &BookingLedger{
		bookings: bookings,
		trips:    trips,
		seats:    seats,
		tx:       tx,
		events:   events,
		now:      now,
		log:      logger.With().Str("component", "ledger").Logger(),
	}
}

// CreateBooking claims the requested seats and records a confirmed booking
// priced at trip price × seats claimed. NotFound, SeatUnavailable and
// validation failures leave no trace.
func (l *BookingLedger) CreateBooking(ctx context.Context, req BookingRequest) (*model.Booking, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	var (
		booking *model.Booking
		replay  bool
	)
	err := l.tx.Do(ctx, func(ctx context.Context) error {
		if req.IntentID != nil {
			existing, err := l.replay(ctx, req)
			if err != nil {
				return err
			}
			if existing != nil {
				booking, replay = existing, true
				return nil
			}
		}

		claim, err := l.seats.ClaimSeats(ctx, req.TripID, req.SeatIDs, req.User)
		if err != nil {
			return err
		}

		b := &model.Booking{
			ID:            uuid.New(),
			IntentID:      req.IntentID,
			UserID:        req.User.ID,
			TripID:        req.TripID,
			Trip:          claim.Trip.Snapshot(),
			Seats:         claim.Seats,
			TotalCents:    claim.Trip.PriceCents * int64(len(claim.Seats)),
			PaymentMethod: req.PaymentMethod,
			Status:        model.StatusConfirmed,
			CreatedAt:     l.now().UTC(),
		}
		if err := l.bookings.Create(ctx, b); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		booking = b
		return nil
	})
	if req.IntentID != nil && lostIntentRace(err) {
		// A concurrent request with the same intent committed first. Either
		// it took our seats before we locked the trip, or its booking hit
		// the intent index after ours. Our tx is rolled back; answer with
		// the winner's booking.
		existing, rerr := l.replay(ctx, req)
		switch {
		case rerr != nil:
			err = rerr
		case existing != nil:
			booking, replay, err = existing, true, nil
		case errors.Is(err, model.ErrDuplicateIntent):
			err = fmt.Errorf("create booking: intent %s vanished", req.IntentID)
		}
	}
	if err != nil {
		return nil, err
	}

	if replay {
		l.log.Info().Str("booking_id", booking.ID.String()).Msg("booking intent replayed")
		return booking, nil
	}

	publish(ctx, l.log, l.events, &model.BookingConfirmed{
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		TripID:     booking.TripID,
		Seats:      booking.Seats,
		TotalCents: booking.TotalCents,
		OccurredAt: booking.CreatedAt,
	})
	l.log.Info().
		Str("booking_id", booking.ID.String()).
		Str("trip_id", booking.TripID.String()).
		Str("user_id", booking.UserID).
		Int("seats", len(booking.Seats)).
		Msg("booking confirmed")
	return booking, nil
}

// replay returns the booking already recorded under req.IntentID, nil when
// there is none.
func (l *BookingLedger) replay(ctx context.Context, req BookingRequest) (*model.Booking, error) {
	existing, err := l.bookings.GetByIntent(ctx, *req.IntentID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	case existing.UserID != req.User.ID:
		return nil, model.ValidationError{Field: "idempotency_key", Msg: "already used"}
	}
	return existing, nil
}

func lostIntentRace(err error) bool {
	return errors.Is(err, model.ErrDuplicateIntent) || errors.Is(err, model.ErrSeatUnavailable)
}

// CancelBooking cancels a confirmed booking and frees its seats.
//
// Only the owner or an administrator may cancel. When the trip has since
// been deleted the release is skipped and the booking is still cancelled.
func (l *BookingLedger) CancelBooking(ctx context.Context, id uuid.UUID, user model.User) (*model.Booking, error) {
	var (
		booking *model.Booking
		freed   int
	)
	err := l.tx.Do(ctx, func(ctx context.Context) error {
		b, err := l.bookings.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !b.OwnedBy(user) {
			return fmt.Errorf("cancel booking %s: %w", id, model.ErrForbidden)
		}
		if b.Status == model.StatusCancelled {
			return fmt.Errorf("cancel booking %s: %w", id, model.ErrAlreadyCancelled)
		}

		freed, err = l.seats.ReleaseSeats(ctx, b.TripID, b.SeatIDs())
		switch {
		case errors.Is(err, model.ErrNotFound):
			l.log.Warn().
				Str("booking_id", id.String()).
				Str("trip_id", b.TripID.String()).
				Msg("trip gone, nothing to release")
		case err != nil:
			return err
		}

		at := l.now().UTC()
		if err := l.bookings.MarkCancelled(ctx, id, at); err != nil {
			return fmt.Errorf("cancel booking %s: %w", id, err)
		}
		b.Status = model.StatusCancelled
		b.CancelledAt = &at
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, l.log, l.events, &model.BookingCancelled{
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		TripID:     booking.TripID,
		SeatsFreed: freed,
		OccurredAt: *booking.CancelledAt,
	})
	l.log.Info().
		Str("booking_id", id.String()).
		Int("seats_freed", freed).
		Msg("booking cancelled")

	// The cancel has committed; a stale trip snapshot is better than an error.
	if err := l.hydrate(ctx, []*model.Booking{booking}); err != nil {
		l.log.Warn().Err(err).
			Str("booking_id", id.String()).
			Msg("cancelled booking returned without fresh trip details")
	}
	return booking, nil
}

// GetBooking returns a booking its owner or an administrator may see.
func (l *BookingLedger) GetBooking(ctx context.Context, id uuid.UUID, user model.User) (*model.Booking, error) {
	b, err := l.bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.OwnedBy(user) {
		return nil, fmt.Errorf("get booking %s: %w", id, model.ErrForbidden)
	}
	if err := l.hydrate(ctx, []*model.Booking{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// ListForUser splits the user's bookings into upcoming and past as of now.
func (l *BookingLedger) ListForUser(ctx context.Context, user model.User, now time.Time) (*model.BookingList, error) {
	bookings, err := l.bookings.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	ptrs := make([]*model.Booking, len(bookings))
	for i := range bookings {
		ptrs[i] = &bookings[i]
	}
	if err := l.hydrate(ctx, ptrs); err != nil {
		return nil, err
	}

	list := model.PartitionBookings(bookings, now)
	return &list, nil
}

// hydrate refreshes each booking's trip details from the live trip. The
// price per seat stays as it was at booking time. Bookings whose trip was
// deleted keep their snapshot and are flagged TripRemoved.
func (l *BookingLedger) hydrate(ctx context.Context, bookings []*model.Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	seen := make(map[uuid.UUID]struct{}, len(bookings))
	ids := make([]uuid.UUID, 0, len(bookings))
	for _, b := range bookings {
		if _, ok := seen[b.TripID]; !ok {
			seen[b.TripID] = struct{}{}
			ids = append(ids, b.TripID)
		}
	}

	trips, err := l.trips.GetMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("load trips for bookings: %w", err)
	}

	for _, b := range bookings {
		trip, ok := trips[b.TripID]
		if !ok {
			b.TripRemoved = true
			continue
		}
		price := b.Trip.PriceCents
		b.Trip = trip.Snapshot()
		b.Trip.PriceCents = price
	}
	return nil
}

func (r *BookingRequest) normalize() error {
	if r.User.ID == "" {
		return model.ValidationError{Field: "user", Msg: "is required"}
	}
	if r.TripID == uuid.Nil {
		return model.ValidationError{Field: "trip_id", Msg: "is required"}
	}
	if len(r.SeatIDs) == 0 {
		return model.ValidationError{Field: "seat_ids", Msg: "at least one seat is required"}
	}
	if r.PaymentMethod == "" {
		r.PaymentMethod = model.PaymentCard
	}
	if !r.PaymentMethod.Valid() {
		return model.ValidationError{Field: "payment_method", Msg: "must be card or paypal"}
	}
	return nil
}
