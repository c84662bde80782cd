package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shiva/tripbook/config"
	"github.com/shiva/tripbook/internal/model"
	"github.com/shiva/tripbook/internal/repository"
	"github.com/shiva/tripbook/pkg/cache"
)

type TripCacheSuite struct {
	suite.Suite
	ctx       context.Context
	container testcontainers.Container
	client    *redis.Client
	cache     *repository.TripCache
}

func TestTripCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test: needs docker")
	}
	suite.Run(t, new(TripCacheSuite))
}

func (s *TripCacheSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		s.T().Skipf("redis container unavailable: %v", err)
	}
	s.container = container

	host, err := container.Host(s.ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(s.ctx, "6379/tcp")
	s.Require().NoError(err)

	s.client, err = cache.NewRedisClient(s.ctx, config.RedisConfig{
		Host:       host,
		Port:       port.Int(),
		PoolSize:   4,
		ClientName: "tripbook-test",
	})
	s.Require().NoError(err)
	s.cache = repository.NewTripCache(s.client, time.Minute, zerolog.Nop())
}

func (s *TripCacheSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *TripCacheSuite) SetupTest() {
	s.Require().NoError(s.client.FlushDB(s.ctx).Err())
}

func (s *TripCacheSuite) TestClientIsNamed() {
	name, err := s.client.ClientGetName(s.ctx).Result()
	s.Require().NoError(err)
	s.Equal("tripbook-test", name)
	s.NoError(cache.HealthCheck(s.ctx, s.client))
}

func (s *TripCacheSuite) TestMissThenHit() {
	filter := model.TripFilter{Origin: "New York"}

	_, key, ok := s.cache.GetList(s.ctx, filter)
	s.False(ok)
	s.NotEmpty(key)

	trips := []model.Trip{{ID: uuid.New(), Origin: "New York", Seats: model.NewSeats(1)}}
	s.cache.SetList(s.ctx, key, trips)

	got, _, ok := s.cache.GetList(s.ctx, filter)
	s.Require().True(ok)
	s.Require().Len(got, 1)
	s.Equal(trips[0].ID, got[0].ID)

	_, _, ok = s.cache.GetList(s.ctx, model.TripFilter{Origin: "Boston"})
	s.False(ok, "filters are cached separately")
}

func (s *TripCacheSuite) TestEmptyResultIsCached() {
	filter := model.TripFilter{Destination: "Nowhere"}
	_, key, _ := s.cache.GetList(s.ctx, filter)
	s.cache.SetList(s.ctx, key, []model.Trip{})

	got, _, ok := s.cache.GetList(s.ctx, filter)
	s.True(ok)
	s.Empty(got)
}

func (s *TripCacheSuite) TestInvalidateDropsEverything() {
	day := time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC)
	filters := []model.TripFilter{{}, {Date: &day}}
	for _, f := range filters {
		_, key, _ := s.cache.GetList(s.ctx, f)
		s.cache.SetList(s.ctx, key, []model.Trip{{ID: uuid.New()}})
	}

	s.cache.Invalidate(s.ctx)

	for _, f := range filters {
		_, _, ok := s.cache.GetList(s.ctx, f)
		s.False(ok)
	}
}

func (s *TripCacheSuite) TestFillAfterInvalidateIsNotServed() {
	filter := model.TripFilter{}
	deleted := model.Trip{ID: uuid.New(), Origin: "Gone"}

	// A reader misses, loads rows, and a trip change lands before it fills.
	_, key, ok := s.cache.GetList(s.ctx, filter)
	s.Require().False(ok)
	s.cache.Invalidate(s.ctx)
	s.cache.SetList(s.ctx, key, []model.Trip{deleted})

	got, _, ok := s.cache.GetList(s.ctx, filter)
	s.False(ok, "stale rows served: %v", got)
}
