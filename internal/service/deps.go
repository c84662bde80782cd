package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shiva/tripbook/internal/model"
)

// TxManager runs fn inside a transaction carried by ctx. Nested calls join the
// outer transaction.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// TripRepository persists trip documents.
type TripRepository interface {
	List(ctx context.Context, filter model.TripFilter) ([]model.Trip, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Trip, error)
	// GetForUpdate loads the trip and holds it exclusively until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Trip, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Trip, error)
	Create(ctx context.Context, trip *model.Trip) error
	Save(ctx context.Context, trip *model.Trip) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BookingRepository persists the booking ledger.
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// GetByIntent returns the booking created under intentID, or a NotFoundError.
	GetByIntent(ctx context.Context, intentID uuid.UUID) (*model.Booking, error)
	// ListByUser returns the user's bookings, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) error
}

// TripCache caches trip search results.
//
// GetList also returns the slot a miss should be filled into. The slot is
// fixed at lookup, so rows read before an Invalidate never land in the newer
// generation. An empty slot means the cache is unavailable.
type TripCache interface {
	GetList(ctx context.Context, filter model.TripFilter) (trips []model.Trip, slot string, ok bool)
	SetList(ctx context.Context, slot string, trips []model.Trip)
	Invalidate(ctx context.Context)
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock returns the current time.
type Clock func() time.Time

// NopCache is a TripCache that never hits.
type NopCache struct{}

func (NopCache) GetList(context.Context, model.TripFilter) ([]model.Trip, string, bool) {
	return nil, "", false
}
func (NopCache) SetList(context.Context, string, []model.Trip) {}
func (NopCache) Invalidate(context.Context)                   {}
