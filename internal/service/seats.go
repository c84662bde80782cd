package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shiva/tripbook/internal/model"
)

// ─── SeatStore ──────────────────────────────────────────────

// SeatStore owns the booked/free state of every seat.
//
// Concurrency model:
//   - Every operation loads the trip with GetForUpdate inside a transaction,
//     so the check and the write happen while the trip row is locked.
//   - Concurrent claims on the same trip serialize; the loser re-reads the
//     committed seats and fails with SeatUnavailableError.
//   - Claims on different trips never wait for each other.
type SeatStore struct {
	trips TripRepository
	tx    TxManager
	log   zerolog.Logger
}

// NewSeatStore creates a seat store.
func NewSeatStore(trips TripRepository, tx TxManager, logger zerolog.Logger) *SeatStore {
	return &SeatStore{
		trips: trips,
		tx:    tx,
		log:   logger.With().Str("component", "seats").Logger(),
	}
}

// Claim is the outcome of a successful ClaimSeats.
type Claim struct {
	Trip  model.Trip
	Seats []model.SeatSnapshot
}

// ClaimSeats books all requested seats of a trip for user, or none of them.
//
// Failures:
//   - NotFoundError when the trip or any seat does not exist.
//   - SeatUnavailableError naming the first requested seat that is taken.
func (s *SeatStore) ClaimSeats(ctx context.Context, tripID uuid.UUID, seatIDs []uuid.UUID, user model.User) (*Claim, error) {
	if len(seatIDs) == 0 {
		return nil, model.ValidationError{Field: "seat_ids", Msg: "at least one seat is required"}
	}

	var claim *Claim
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		trip, err := s.trips.GetForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		snapshots, err := trip.ClaimSeats(seatIDs, user.ID)
		if err != nil {
			return err
		}

		if err := s.trips.Save(ctx, trip); err != nil {
			return fmt.Errorf("claim seats: save trip %s: %w", tripID, err)
		}
		claim = &Claim{Trip: *trip, Seats: snapshots}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("trip_id", tripID.String()).
		Str("user_id", user.ID).
		Int("seats", len(claim.Seats)).
		Msg("seats claimed")
	return claim, nil
}

// ReleaseSeats frees the listed seats of a trip. Seats no longer on the trip
// are skipped. It returns the number of seats that were booked and are now
// free, or a NotFoundError when the trip is gone.
func (s *SeatStore) ReleaseSeats(ctx context.Context, tripID uuid.UUID, seatIDs []uuid.UUID) (int, error) {
	var released int
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		trip, err := s.trips.GetForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		released = trip.ReleaseSeats(seatIDs)
		if released == 0 {
			return nil
		}
		if err := s.trips.Save(ctx, trip); err != nil {
			return fmt.Errorf("release seats: save trip %s: %w", tripID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Debug().
		Str("trip_id", tripID.String()).
		Int("released", released).
		Msg("seats released")
	return released, nil
}

// Resize moves the trip's seat count towards total. Booked seats are never
// removed, so the result may hold more seats than asked for.
func (s *SeatStore) Resize(ctx context.Context, tripID uuid.UUID, total int) (*model.Trip, error) {
	if err := validateSeatTotal(total); err != nil {
		return nil, err
	}

	var resized *model.Trip
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		trip, err := s.trips.GetForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		trip.Resize(total)
		if err := s.trips.Save(ctx, trip); err != nil {
			return fmt.Errorf("resize: save trip %s: %w", tripID, err)
		}
		resized = trip
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resized.TotalSeats != total {
		s.log.Info().
			Str("trip_id", tripID.String()).
			Int("requested", total).
			Int("kept", resized.TotalSeats).
			Msg("shrink stopped at booked seats")
	}
	return resized, nil
}
