// Package handler implements the HTTP handlers for the ritlog API.
// All handlers are methods on Server. Methods are split into resource
// files (vehicle.go, trip.go, etc.) but share the same Server struct so
// they can reach its dependencies.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/middleware"
	"github.com/pkordes/ritlog/internal/service"
)

// VehicleServicer defines the vehicle operations the handlers depend on.
// Defining the interface here, in the consumer package, lets handler tests
// inject a mock without touching the database or service layer.
type VehicleServicer interface {
	Create(ctx context.Context, in service.CreateVehicleInput) (domain.Vehicle, error)
	Get(ctx context.Context, id, userID uuid.UUID) (domain.Vehicle, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Vehicle, error)
	UpdateTrackingMode(ctx context.Context, id, userID uuid.UUID, mode domain.TrackingMode) (domain.Vehicle, error)
	Share(ctx context.Context, id, ownerID, withUserID uuid.UUID) error
	Unshare(ctx context.Context, id, ownerID, withUserID uuid.UUID) error
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}

// ReadingServicer defines the meterstand operations the handlers depend on.
type ReadingServicer interface {
	Create(ctx context.Context, in service.CreateReadingInput) (domain.OdometerReading, error)
	List(ctx context.Context, vehicleID, userID uuid.UUID) ([]domain.OdometerReading, error)
	Delete(ctx context.Context, vehicleID, readingID, userID uuid.UUID) error
}

// TripServicer defines the trip operations the handlers depend on.
type TripServicer interface {
	Create(ctx context.Context, in service.CreateTripInput) (domain.Trip, error)
	Complete(ctx context.Context, tripID, userID uuid.UUID, endKm float64) (domain.Trip, error)
	GetByID(ctx context.Context, id, userID uuid.UUID) (domain.Trip, error)
	ListByVehicle(ctx context.Context, vehicleID, userID uuid.UUID, p domain.PaginationParams) (domain.Page[domain.Trip], error)
	Update(ctx context.Context, in service.UpdateTripInput) (domain.Trip, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// ReportServicer defines the report operations the handlers depend on.
type ReportServicer interface {
	Generate(ctx context.Context, vehicleID, userID uuid.UUID, from, to time.Time) (domain.Report, error)
	Location() *time.Location
}

// Server holds the handler dependencies. Any servicer may be nil when a
// test only exercises a subset of the routes.
type Server struct {
	vehicles VehicleServicer
	readings ReadingServicer
	trips    TripServicer
	reports  ReportServicer
	checks   []DependencyCheck
	openapi  []byte
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithHealthChecks registers the dependencies /healthz probes.
func WithHealthChecks(checks ...DependencyCheck) Option {
	return func(s *Server) { s.checks = append(s.checks, checks...) }
}

// WithOpenAPI serves doc at GET /openapi.yaml.
func WithOpenAPI(doc []byte) Option {
	return func(s *Server) { s.openapi = doc }
}

// NewServer constructs the Server with all its dependencies.
func NewServer(vehicles VehicleServicer, readings ReadingServicer, trips TripServicer, reports ReportServicer, opts ...Option) *Server {
	s := &Server{vehicles: vehicles, readings: readings, trips: trips, reports: reports}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the API routes. Everything except /healthz and
// /openapi.yaml requires the X-User-ID header.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	if s.openapi != nil {
		r.Get("/openapi.yaml", s.GetOpenAPI)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUserID)

		r.Route("/vehicles", func(r chi.Router) {
			r.Post("/", s.CreateVehicle)
			r.Get("/", s.ListVehicles)
			r.Route("/{vehicleID}", func(r chi.Router) {
				r.Get("/", s.GetVehicle)
				r.Delete("/", s.DeleteVehicle)
				r.Put("/tracking-mode", s.UpdateTrackingMode)
				r.Post("/shares", s.ShareVehicle)
				r.Delete("/shares/{userID}", s.UnshareVehicle)

				r.Post("/readings", s.CreateReading)
				r.Get("/readings", s.ListReadings)
				r.Delete("/readings/{readingID}", s.DeleteReading)

				r.Post("/trips", s.CreateTrip)
				r.Get("/trips", s.ListTrips)

				r.Get("/report", s.GetReport)
			})
		})

		r.Route("/trips/{tripID}", func(r chi.Router) {
			r.Get("/", s.GetTrip)
			r.Put("/", s.UpdateTrip)
			r.Delete("/", s.DeleteTrip)
			r.Post("/complete", s.CompleteTrip)
		})
	})
	return r
}

// GetOpenAPI handles GET /openapi.yaml.
func (s *Server) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(s.openapi)
}
