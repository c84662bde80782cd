package events

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/tripbook/internal/model"
	"github.com/shiva/tripbook/pkg/logging"
)

type countingInvalidator struct {
	n atomic.Int32
}

func (c *countingInvalidator) Invalidate(context.Context) { c.n.Add(1) }

// startProcessor runs the handlers on an in-process pub/sub and returns the
// bus to publish on.
func startProcessor(t *testing.T, handlers ...cqrs.EventHandler) *cqrs.EventBus {
	t.Helper()
	wlogger := watermill.NopLogger{}
	pubsub := NewInProcessPubSub(wlogger)

	router, err := NewRouter(zerolog.Nop(), wlogger)
	require.NoError(t, err)
	processor, err := NewEventProcessor(router, SharedSubscriber(pubsub), wlogger)
	require.NoError(t, err)
	require.NoError(t, processor.AddHandlers(handlers...))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = router.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}

	bus, err := NewEventBus(pubsub, wlogger)
	require.NoError(t, err)
	return bus
}

func TestHandler_InvalidatesTripCache(t *testing.T) {
	cache := &countingInvalidator{}
	bus := startProcessor(t, NewHandler(cache).Handlers()...)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, &model.BookingConfirmed{BookingID: uuid.New(), TripID: uuid.New()}))
	require.NoError(t, bus.Publish(ctx, &model.BookingCancelled{BookingID: uuid.New(), SeatsFreed: 2}))
	require.NoError(t, bus.Publish(ctx, &model.TripChanged{TripID: uuid.New(), Kind: model.TripUpdated}))

	assert.Eventually(t, func() bool { return cache.n.Load() == 3 }, 5*time.Second, 10*time.Millisecond)
}

func TestHandler_NothingFreedKeepsCache(t *testing.T) {
	cache := &countingInvalidator{}
	bus := startProcessor(t, NewHandler(cache).Handlers()...)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, &model.BookingCancelled{BookingID: uuid.New(), SeatsFreed: 0}))
	require.NoError(t, bus.Publish(ctx, &model.TripChanged{TripID: uuid.New(), Kind: model.TripDeleted}))

	assert.Eventually(t, func() bool { return cache.n.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, cache.n.Load())
}

func TestEventBus_CarriesCorrelationID(t *testing.T) {
	var (
		mu  sync.Mutex
		got string
	)
	observer := cqrs.NewEventHandler("trip-change-observer", func(ctx context.Context, _ *model.TripChanged) error {
		mu.Lock()
		defer mu.Unlock()
		got = logging.CorrelationID(ctx)
		return nil
	})
	bus := startProcessor(t, observer)

	ctx := logging.WithCorrelationID(context.Background(), "req-42")
	require.NoError(t, bus.Publish(ctx, &model.TripChanged{TripID: uuid.New(), Kind: model.TripCreated}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got == "req-42"
	}, 5*time.Second, 10*time.Millisecond)
}
