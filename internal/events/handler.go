package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/rs/zerolog"

	"github.com/shiva/tripbook/internal/model"
)

// CacheInvalidator drops cached trip searches.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// Handler reacts to booking and trip events.
type Handler struct {
	cache CacheInvalidator
}

// NewHandler creates the event handlers.
func NewHandler(cache CacheInvalidator) *Handler {
	return &Handler{cache: cache}
}

// Handlers lists every handler to register on the processor.
func (h *Handler) Handlers() []cqrs.EventHandler {
	return []cqrs.EventHandler{
		h.SeatsBookedHandler(),
		h.SeatsReleasedHandler(),
		h.TripChangedHandler(),
	}
}

// SeatsBookedHandler drops cached searches once seats are taken; listings
// show availability.
func (h *Handler) SeatsBookedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"invalidate_trips_on_booking",
		func(ctx context.Context, event *model.BookingConfirmed) error {
			zerolog.Ctx(ctx).Debug().
				Str("trip_id", event.TripID.String()).
				Int("seats", len(event.Seats)).
				Msg("seats booked, invalidating trip cache")
			h.cache.Invalidate(ctx)
			return nil
		},
	)
}

func (h *Handler) SeatsReleasedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"invalidate_trips_on_cancel",
		func(ctx context.Context, event *model.BookingCancelled) error {
			if event.SeatsFreed == 0 {
				return nil
			}
			zerolog.Ctx(ctx).Debug().
				Str("trip_id", event.TripID.String()).
				Int("seats_freed", event.SeatsFreed).
				Msg("seats released, invalidating trip cache")
			h.cache.Invalidate(ctx)
			return nil
		},
	)
}

// TripChangedHandler covers edits made by other replicas; the replica that
// made the change already invalidated synchronously.
func (h *Handler) TripChangedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"invalidate_trips_on_trip_change",
		func(ctx context.Context, event *model.TripChanged) error {
			zerolog.Ctx(ctx).Debug().
				Str("trip_id", event.TripID.String()).
				Str("kind", string(event.Kind)).
				Msg("trip changed, invalidating trip cache")
			h.cache.Invalidate(ctx)
			return nil
		},
	)
}
