// Package repository provides PostgreSQL and Redis access for trips and
// bookings.
//
// Every statement runs through the transaction carried by ctx when there is
// one (see NewTxManager), so a trip row locked with SELECT ... FOR UPDATE
// stays locked until the service-level transaction commits or rolls back.
package repository

import (
	"context"
	"fmt"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewTxManager returns the transaction manager shared by the repositories of
// pool. Nested Do calls join the outer transaction.
func NewTxManager(pool *pgxpool.Pool) *manager.Manager {
	return manager.Must(trmpgx.NewDefaultFactory(pool))
}

// Seats and booking snapshots live in JSONB documents: a trip is read and
// written whole under its row lock, and a booking never changes after
// creation except for its status.
const schema = `
CREATE TABLE IF NOT EXISTS trips (
	id             UUID PRIMARY KEY,
	origin         TEXT        NOT NULL,
	destination    TEXT        NOT NULL,
	departure_date DATE        NOT NULL,
	departure_time TEXT        NOT NULL,
	price_cents    BIGINT      NOT NULL CHECK (price_cents >= 0),
	total_seats    INT         NOT NULL CHECK (total_seats > 0),
	seats          JSONB       NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_trips_departure
	ON trips (departure_date, departure_time);

CREATE TABLE IF NOT EXISTS bookings (
	id             UUID PRIMARY KEY,
	intent_id      UUID UNIQUE,
	user_id        TEXT        NOT NULL,
	trip_id        UUID        NOT NULL,
	trip           JSONB       NOT NULL,
	seats          JSONB       NOT NULL,
	total_cents    BIGINT      NOT NULL,
	payment_method TEXT        NOT NULL,
	status         TEXT        NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	cancelled_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_bookings_user
	ON bookings (user_id, created_at DESC);
`

// InitSchema creates the tables if they do not exist yet.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
