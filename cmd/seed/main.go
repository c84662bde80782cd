// Command seed loads a handful of sample trips into the configured store.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/shiva/tripbook/config"
	"github.com/shiva/tripbook/internal/app"
	"github.com/shiva/tripbook/internal/model"
	"github.com/shiva/tripbook/internal/service"
	"github.com/shiva/tripbook/internal/ticket"
	"github.com/shiva/tripbook/pkg/logging"
)

type sample struct {
	origin, destination string
	daysAhead           int
	clock               string
	priceCents          int64
}

var samples = []sample{
	{"New York", "Boston", 14, "09:00", 4800},
	{"Chicago", "Los Angeles", 17, "10:30", 15600},
	{"Atlanta", "Miami", 19, "14:00", 12900},
	{"Boston", "New York", 14, "15:30", 8900},
	{"Los Angeles", "San Francisco", 21, "08:00", 7500},
	{"Miami", "Orlando", 24, "11:00", 4500},
}

func main() {
	seats := pflag.Int("seats", 36, "seats per trip")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect")
	}
	defer a.Close()

	today := model.DateOf(time.Now())
	for _, s := range samples {
		trip, err := a.Trips.Create(ctx, service.TripInput{
			Origin:        s.origin,
			Destination:   s.destination,
			DepartureDate: today.AddDate(0, 0, s.daysAhead).Format(model.DateLayout),
			DepartureTime: s.clock,
			PriceCents:    s.priceCents,
			TotalSeats:    *seats,
		})
		if err != nil {
			logger.Error().Err(err).Str("origin", s.origin).Msg("seed trip failed")
			a.Close()
			os.Exit(1)
		}
		logger.Info().
			Str("trip_id", trip.ID.String()).
			Str("date", trip.DepartureDate.Format(model.DateLayout)).
			Str("price", ticket.FormatCents(trip.PriceCents)).
			Int("seats", len(trip.Seats)).
			Msgf("%s → %s", trip.Origin, trip.Destination)
	}
	logger.Info().Int("trips", len(samples)).Msg("seeding completed")
}
