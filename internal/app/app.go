// Package app assembles the service from configuration and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/shiva/tripbook/config"
	"github.com/shiva/tripbook/internal/auth"
	"github.com/shiva/tripbook/internal/events"
	"github.com/shiva/tripbook/internal/handler"
	"github.com/shiva/tripbook/internal/repository"
	"github.com/shiva/tripbook/internal/repository/memstore"
	"github.com/shiva/tripbook/internal/service"
	"github.com/shiva/tripbook/pkg/cache"
	"github.com/shiva/tripbook/pkg/db"
	"github.com/shiva/tripbook/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

// App is the running service: HTTP API plus the event router.
type App struct {
	logger  zerolog.Logger
	router  *message.Router
	srv     *http.Server
	Trips   *service.TripService
	Ledger  *service.BookingLedger
	Issuer  *auth.Issuer
	closers []func()
}

// backend is what a store driver contributes to the wiring.
type backend struct {
	trips       service.TripRepository
	bookings    service.BookingRepository
	tx          service.TxManager
	cache       service.TripCache
	publisher   message.Publisher
	subscribers events.SubscriberFactory
	health      map[string]handler.HealthCheck
	closers     []func()
}

// New connects to the configured backends and wires every layer.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	wlogger := logging.NewWatermillAdapter(logger)

	var (
		b   *backend
		err error
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		b = memoryBackend(wlogger)
	default:
		b, err = postgresBackend(ctx, cfg, logger, wlogger)
	}
	if err != nil {
		return nil, err
	}

	a, err := assemble(cfg, logger, wlogger, b)
	if err != nil {
		for _, c := range b.closers {
			c()
		}
		return nil, err
	}
	return a, nil
}

func memoryBackend(wlogger watermill.LoggerAdapter) *backend {
	store := memstore.New()
	pubsub := events.NewInProcessPubSub(wlogger)
	return &backend{
		trips:       store.Trips(),
		bookings:    store.Bookings(),
		tx:          store,
		cache:       service.NopCache{},
		publisher:   pubsub,
		subscribers: events.SharedSubscriber(pubsub),
		health: map[string]handler.HealthCheck{
			"memory": func(context.Context) error { return nil },
		},
		closers: []func(){func() { _ = pubsub.Close() }},
	}
}

func postgresBackend(
	ctx context.Context,
	cfg *config.Config,
	logger zerolog.Logger,
	wlogger watermill.LoggerAdapter,
) (*backend, error) {
	pool, err := db.NewPostgresPool(ctx, cfg.Postgres, repository.InitSchema)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	logger.Info().Msg("postgres connected")

	rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info().Msg("redis connected")

	closers := []func(){pool.Close, func() { _ = rdb.Close() }}
	fail := func(err error) (*backend, error) {
		for _, c := range closers {
			c()
		}
		return nil, err
	}

	publisher, err := events.NewRedisPublisher(rdb, wlogger)
	if err != nil {
		return fail(fmt.Errorf("redis publisher: %w", err))
	}

	return &backend{
		trips:       repository.NewTripRepository(pool),
		bookings:    repository.NewBookingRepository(pool),
		tx:          repository.NewTxManager(pool),
		cache:       repository.NewTripCache(rdb, cfg.TripsCacheTTL, logger),
		publisher:   publisher,
		subscribers: events.RedisSubscribers(rdb, cfg.ConsumerGroup, wlogger),
		health:      healthChecks(pool, rdb),
		closers:     closers,
	}, nil
}

func healthChecks(pool *pgxpool.Pool, rdb *redis.Client) map[string]handler.HealthCheck {
	return map[string]handler.HealthCheck{
		"postgres": func(ctx context.Context) error { return db.HealthCheck(ctx, pool) },
		"redis":    func(ctx context.Context) error { return cache.HealthCheck(ctx, rdb) },
	}
}

func assemble(
	cfg *config.Config,
	logger zerolog.Logger,
	wlogger watermill.LoggerAdapter,
	b *backend,
) (*App, error) {
	router, err := events.NewRouter(logger, wlogger)
	if err != nil {
		return nil, fmt.Errorf("event router: %w", err)
	}
	eventBus, err := events.NewEventBus(b.publisher, wlogger)
	if err != nil {
		return nil, fmt.Errorf("event bus: %w", err)
	}
	processor, err := events.NewEventProcessor(router, b.subscribers, wlogger)
	if err != nil {
		return nil, fmt.Errorf("event processor: %w", err)
	}
	if err := processor.AddHandlers(events.NewHandler(b.cache).Handlers()...); err != nil {
		return nil, fmt.Errorf("event handlers: %w", err)
	}

	clock := func() time.Time { return time.Now().UTC() }
	seats := service.NewSeatStore(b.trips, b.tx, logger)
	trips := service.NewTripService(b.trips, seats, b.tx, b.cache, eventBus, clock, logger)
	ledger := service.NewBookingLedger(b.bookings, b.trips, seats, b.tx, eventBus, clock, logger)
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	api := handler.NewRouter(handler.Deps{
		Trips:    trips,
		Ledger:   ledger,
		Verifier: issuer,
		Health:   b.health,
		Now:      clock,
		Logger:   logger,
	})

	return &App{
		logger: logger,
		router: router,
		srv: &http.Server{
			Addr:         cfg.Server.ServerAddr(),
			Handler:      api,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		Trips:   trips,
		Ledger:  ledger,
		Issuer:  issuer,
		closers: b.closers,
	}, nil
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	return a.srv.Handler
}

// Run starts the event router and then the HTTP server, and blocks until ctx
// is cancelled or either of them fails.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info().Msg("starting event router")
		return a.router.Run(ctx)
	})

	g.Go(func() error {
		select {
		case <-a.router.Running():
		case <-ctx.Done():
			return nil
		}
		a.logger.Info().Str("addr", a.srv.Addr).Msg("server listening")
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("server forced to shutdown")
			return err
		}
		return nil
	})

	return g.Wait()
}

// RunRouter runs only the event router until ctx ends. Tests use it with
// Handler to exercise the API without binding a port.
func (a *App) RunRouter(ctx context.Context) error {
	return a.router.Run(ctx)
}

// Running is closed once the event router has started.
func (a *App) Running() chan struct{} {
	return a.router.Running()
}

// Close releases the backend connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
