package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiva/tripbook/internal/model"
)

// TripRepository stores trips, seat map included, in the trips table.
type TripRepository struct {
	pool   *pgxpool.Pool
	getter *trmpgx.CtxGetter
}

// NewTripRepository creates a new trip repository.
func NewTripRepository(pool *pgxpool.Pool) *TripRepository {
	return &TripRepository{pool: pool, getter: trmpgx.DefaultCtxGetter}
}

const tripColumns = `id, origin, destination, departure_date, departure_time,
	price_cents, total_seats, seats, created_at, updated_at`

func scanTrip(row pgx.Row) (*model.Trip, error) {
	t := &model.Trip{}
	err := row.Scan(
		&t.ID, &t.Origin, &t.Destination, &t.DepartureDate, &t.DepartureTime,
		&t.PriceCents, &t.TotalSeats, &t.Seats, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.DepartureDate = model.DateOf(t.DepartureDate)
	return t, nil
}

// List returns trips matching filter ordered by departure date then time.
// Origin and destination match case-insensitively anywhere in the name.
func (r *TripRepository) List(ctx context.Context, filter model.TripFilter) ([]model.Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE ($1 = '' OR origin ILIKE '%' || $1 || '%' ESCAPE '\')
		  AND ($2 = '' OR destination ILIKE '%' || $2 || '%' ESCAPE '\')
		  AND ($3::date IS NULL OR departure_date = $3::date)
		ORDER BY departure_date, departure_time, created_at
	`

	rows, err := r.getter.DefaultTrOrDB(ctx, r.pool).Query(ctx, query,
		escapeLike(filter.Origin), escapeLike(filter.Destination), filter.Date)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	trips := make([]model.Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("list trips: scan: %w", err)
		}
		trips = append(trips, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return trips, nil
}

// Get returns a trip by ID.
func (r *TripRepository) Get(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate returns a trip and locks its row until the surrounding
// transaction ends. Concurrent callers block here and then re-read the
// committed seat map.
func (r *TripRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	return r.get(ctx, id, "FOR UPDATE")
}

func (r *TripRepository) get(ctx context.Context, id uuid.UUID, lock string) (*model.Trip, error) {
	row := r.getter.DefaultTrOrDB(ctx, r.pool).QueryRow(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE id = $1 `+lock, id)

	t, err := scanTrip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.TripNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get trip %s: %w", id, err)
	}
	return t, nil
}

// GetMany returns the trips that still exist among ids, keyed by ID.
func (r *TripRepository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Trip, error) {
	out := make(map[uuid.UUID]model.Trip, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.getter.DefaultTrOrDB(ctx, r.pool).Query(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get trips: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("get trips: scan: %w", err)
		}
		out[t.ID] = *t
	}
	return out, rows.Err()
}

// Create inserts a new trip.
func (r *TripRepository) Create(ctx context.Context, t *model.Trip) error {
	_, err := r.getter.DefaultTrOrDB(ctx, r.pool).Exec(ctx, `
		INSERT INTO trips (`+tripColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		t.ID, t.Origin, t.Destination, t.DepartureDate, t.DepartureTime,
		t.PriceCents, t.TotalSeats, t.Seats, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create trip: %w", err)
	}
	return nil
}

// Save overwrites every column of an existing trip.
func (r *TripRepository) Save(ctx context.Context, t *model.Trip) error {
	tag, err := r.getter.DefaultTrOrDB(ctx, r.pool).Exec(ctx, `
		UPDATE trips
		SET origin = $2, destination = $3, departure_date = $4, departure_time = $5,
		    price_cents = $6, total_seats = $7, seats = $8, updated_at = $9
		WHERE id = $1
	`,
		t.ID, t.Origin, t.Destination, t.DepartureDate, t.DepartureTime,
		t.PriceCents, t.TotalSeats, t.Seats, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save trip %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return model.TripNotFound(t.ID)
	}
	return nil
}

// Delete removes a trip. Bookings referencing it are left in place.
func (r *TripRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.getter.DefaultTrOrDB(ctx, r.pool).Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete trip %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return model.TripNotFound(id)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
