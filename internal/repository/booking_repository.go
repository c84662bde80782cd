package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiva/tripbook/internal/model"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// BookingRepository stores the booking ledger.
type BookingRepository struct {
	pool   *pgxpool.Pool
	getter *trmpgx.CtxGetter
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool, getter: trmpgx.DefaultCtxGetter}
}

const bookingColumns = `id, intent_id, user_id, trip_id, trip, seats, total_cents,
	payment_method, status, created_at, cancelled_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	b := &model.Booking{}
	err := row.Scan(
		&b.ID, &b.IntentID, &b.UserID, &b.TripID, &b.Trip, &b.Seats, &b.TotalCents,
		&b.PaymentMethod, &b.Status, &b.CreatedAt, &b.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Create inserts a booking. A reused intent ID yields model.ErrDuplicateIntent;
// inside a transaction that failure also aborts the transaction.
func (r *BookingRepository) Create(ctx context.Context, b *model.Booking) error {
	_, err := r.getter.DefaultTrOrDB(ctx, r.pool).Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		b.ID, b.IntentID, b.UserID, b.TripID, b.Trip, b.Seats, b.TotalCents,
		b.PaymentMethod, b.Status, b.CreatedAt, b.CancelledAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return model.ErrDuplicateIntent
	}
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// Get returns a booking by ID.
func (r *BookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return r.getOne(ctx, model.BookingNotFound(id),
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// GetForUpdate returns a booking and locks its row until the surrounding
// transaction ends, so two cancellations of the same booking serialize.
func (r *BookingRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return r.getOne(ctx, model.BookingNotFound(id),
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

// GetByIntent returns the booking created under intentID.
func (r *BookingRepository) GetByIntent(ctx context.Context, intentID uuid.UUID) (*model.Booking, error) {
	return r.getOne(ctx, model.NotFoundError{Resource: "booking intent", ID: intentID.String()},
		`SELECT `+bookingColumns+` FROM bookings WHERE intent_id = $1`, intentID)
}

func (r *BookingRepository) getOne(ctx context.Context, notFound error, query string, arg any) (*model.Booking, error) {
	b, err := scanBooking(r.getter.DefaultTrOrDB(ctx, r.pool).QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ListByUser returns every booking of userID, newest first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	rows, err := r.getter.DefaultTrOrDB(ctx, r.pool).Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings for %s: %w", userID, err)
	}
	defer rows.Close()

	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("list bookings: scan: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings for %s: %w", userID, err)
	}
	return out, nil
}

// MarkCancelled flips a booking to cancelled and stamps the time.
func (r *BookingRepository) MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.getter.DefaultTrOrDB(ctx, r.pool).Exec(ctx, `
		UPDATE bookings
		SET status = $2, cancelled_at = $3
		WHERE id = $1
	`, id, model.StatusCancelled, at)
	if err != nil {
		return fmt.Errorf("cancel booking %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return model.BookingNotFound(id)
	}
	return nil
}
