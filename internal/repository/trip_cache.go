package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shiva/tripbook/internal/model"
)

// ─── Redis-backed trip search cache ─────────────────────────

const (
	tripListKeyPrefix = "trips:list:"
	tripGenKey        = "trips:gen"
)

// TripCache caches trip search results in Redis.
//
// Keys embed a generation number. Invalidate bumps the generation, which
// orphans every cached search at once; orphans expire with their TTL.
type TripCache struct {
	redis *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewTripCache creates a trip cache whose entries live for ttl.
func NewTripCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *TripCache {
	return &TripCache{
		redis: client,
		ttl:   ttl,
		log:   logger.With().Str("component", "trip_cache").Logger(),
	}
}

func (c *TripCache) key(ctx context.Context, filter model.TripFilter) (string, error) {
	gen, err := c.redis.Get(ctx, tripGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}

	date := "*"
	if filter.Date != nil {
		date = filter.Date.Format(model.DateLayout)
	}
	return fmt.Sprintf("%s%d:%s|%s|%s", tripListKeyPrefix, gen, filter.Origin, filter.Destination, date), nil
}

// GetList returns the cached result for filter and the key a miss should be
// stored under. Redis failures count as a miss with no key.
func (c *TripCache) GetList(ctx context.Context, filter model.TripFilter) ([]model.Trip, string, bool) {
	key, err := c.key(ctx, filter)
	if err != nil {
		c.log.Warn().Err(err).Msg("trip cache unavailable")
		return nil, "", false
	}

	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("trip cache read failed")
		}
		return nil, key, false
	}

	var trips []model.Trip
	if err := json.Unmarshal(raw, &trips); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("trip cache entry corrupt")
		return nil, key, false
	}
	return trips, key, true
}

// SetList stores trips under key, as returned by GetList for the miss
// (fire-and-forget). After an Invalidate that key is already orphaned.
func (c *TripCache) SetList(ctx context.Context, key string, trips []model.Trip) {
	if key == "" {
		return
	}
	raw, err := json.Marshal(trips)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("trip cache write failed")
	}
}

// Invalidate drops every cached search result.
func (c *TripCache) Invalidate(ctx context.Context) {
	if err := c.redis.Incr(ctx, tripGenKey).Err(); err != nil {
		c.log.Warn().Err(err).Msg("trip cache invalidation failed")
	}
}
