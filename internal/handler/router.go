package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/shiva/tripbook/internal/middleware"
	"github.com/shiva/tripbook/internal/service"
)

// Deps are the services the HTTP API is built on.
type Deps struct {
	Trips    *service.TripService
	Ledger   *service.BookingLedger
	Verifier middleware.TokenVerifier
	Health   map[string]HealthCheck
	Now      service.Clock
	Logger   zerolog.Logger
}

// NewRouter wires every route of the API and its middleware.
func NewRouter(d Deps) http.Handler {
	tripHandler := NewTripHandler(d.Trips)
	bookingHandler := NewBookingHandler(d.Ledger, d.Now)
	cancelHandler := NewCancelHandler(d.Ledger)
	healthHandler := NewHealthHandler(d.Health)

	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(d.Logger), middleware.Recoverer)

	// Health check endpoint.
	router.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Public trip search.
	api.HandleFunc("/trips", tripHandler.ListTrips).Methods(http.MethodGet)
	api.HandleFunc("/trips/{id}", tripHandler.GetTrip).Methods(http.MethodGet)

	// Trip administration.
	admin := api.NewRoute().Subrouter()
	admin.Use(middleware.Authenticate(d.Verifier), middleware.RequireAdmin)
	admin.HandleFunc("/trips", tripHandler.CreateTrip).Methods(http.MethodPost)
	admin.HandleFunc("/trips/{id}", tripHandler.UpdateTrip).Methods(http.MethodPut)
	admin.HandleFunc("/trips/{id}", tripHandler.DeleteTrip).Methods(http.MethodDelete)

	// Bookings, for any authenticated user.
	bookings := api.PathPrefix("/bookings").Subrouter()
	bookings.Use(middleware.Authenticate(d.Verifier))
	bookings.HandleFunc("", bookingHandler.CreateBooking).Methods(http.MethodPost)
	bookings.HandleFunc("/mine", bookingHandler.ListMine).Methods(http.MethodGet)
	bookings.HandleFunc("/{id}", bookingHandler.GetBooking).Methods(http.MethodGet)
	bookings.HandleFunc("/{id}/cancel", cancelHandler.CancelBooking).Methods(http.MethodPut)
	bookings.HandleFunc("/{id}/ticket", bookingHandler.Ticket).Methods(http.MethodGet)

	// Wrap with CORS so browser clients can call the API.
	return middleware.CORS(router)
}
