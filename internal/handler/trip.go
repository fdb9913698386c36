package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/service"
)

// CreateTripRequest is the body of POST /vehicles/{id}/trips.
// StartOdometerKm may be omitted on auto_calculate vehicles.
type CreateTripRequest struct {
	Timestamp       time.Time             `json:"timestamp"`
	StartOdometerKm *float64              `json:"start_odometer_km,omitempty"`
	EndOdometerKm   *float64              `json:"end_odometer_km,omitempty"`
	DistanceKm      *float64              `json:"distance_km,omitempty"`
	DistanceSource  domain.DistanceSource `json:"distance_source,omitempty"`
	Purpose         domain.Purpose        `json:"purpose"`
	StartAddress    string                `json:"start_address,omitempty"`
	EndAddress      string                `json:"end_address,omitempty"`
	Notes           string                `json:"notes,omitempty"`
}

// UpdateTripRequest is the body of PUT /trips/{id}.
type UpdateTripRequest struct {
	Purpose      domain.Purpose `json:"purpose"`
	StartAddress string         `json:"start_address,omitempty"`
	EndAddress   string         `json:"end_address,omitempty"`
	Notes        string         `json:"notes,omitempty"`
}

// CompleteTripRequest is the body of POST /trips/{id}/complete.
type CompleteTripRequest struct {
	EndOdometerKm *float64 `json:"end_odometer_km"`
}

// Trip is the JSON representation of domain.Trip.
type Trip struct {
	ID                 uuid.UUID                  `json:"id"`
	VehicleID          uuid.UUID                  `json:"vehicle_id"`
	UserID             uuid.UUID                  `json:"user_id"`
	Timestamp          time.Time                  `json:"timestamp"`
	StartOdometerKm    float64                    `json:"start_odometer_km"`
	EndOdometerKm      *float64                   `json:"end_odometer_km,omitempty"`
	DistanceKm         *float64                   `json:"distance_km,omitempty"`
	DistanceSource     domain.DistanceSource      `json:"distance_source,omitempty"`
	Purpose            domain.Purpose             `json:"purpose"`
	StartAddress       string                     `json:"start_address,omitempty"`
	EndAddress         string                     `json:"end_address,omitempty"`
	Notes              string                     `json:"notes,omitempty"`
	OdometerCalculated bool                       `json:"odometer_calculated"`
	Basis              *domain.InterpolationBasis `json:"interpolation_basis,omitempty"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// TripList is the body of GET /vehicles/{id}/trips.
type TripList struct {
	Data       []Trip     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// CreateTrip handles POST /vehicles/{vehicleID}/trips.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathUUID(r, "vehicleID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var body CreateTripRequest
	if err := decodeBody(r, &body); err != nil {
		bodyError(w, err)
		return
	}
	created, err := s.trips.Create(r.Context(), service.CreateTripInput{
		VehicleID:       vehicleID,
		UserID:          userID(r),
		Timestamp:       body.Timestamp,
		StartOdometerKm: body.StartOdometerKm,
		EndOdometerKm:   body.EndOdometerKm,
		DistanceKm:      body.DistanceKm,
		DistanceSource:  body.DistanceSource,
		Purpose:         body.Purpose,
		StartAddress:    body.StartAddress,
		EndAddress:      body.EndAddress,
		Notes:           body.Notes,
	})
	if err != nil {
		serviceError(w, r, err, "vehicle not found")
		return
	}
	writeJSON(w, http.StatusCreated, tripToResponse(created))
}

// ListTrips handles GET /vehicles/{vehicleID}/trips.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathUUID(r, "vehicleID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var page, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		badRequest(w, "invalid page")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		badRequest(w, "invalid limit")
		return
	}

	params := domain.NewPaginationParams(page, limit)
	result, err := s.trips.ListByVehicle(r.Context(), vehicleID, userID(r), params)
	if err != nil {
		serviceError(w, r, err, "vehicle not found")
		return
	}

	data := make([]Trip, len(result.Items))
	for i, t := range result.Items {
		data[i] = tripToResponse(t)
	}
	writeJSON(w, http.StatusOK, TripList{
		Data: data,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: result.Total,
		},
	})
}

// GetTrip handles GET /trips/{tripID}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "tripID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	trip, err := s.trips.GetByID(r.Context(), id, userID(r))
	if err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// UpdateTrip handles PUT /trips/{tripID}. Only descriptive fields change.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "tripID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var body UpdateTripRequest
	if err := decodeBody(r, &body); err != nil {
		bodyError(w, err)
		return
	}
	updated, err := s.trips.Update(r.Context(), service.UpdateTripInput{
		ID:           id,
		UserID:       userID(r),
		Purpose:      body.Purpose,
		StartAddress: body.StartAddress,
		EndAddress:   body.EndAddress,
		Notes:        body.Notes,
	})
	if err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(updated))
}

// CompleteTrip handles POST /trips/{tripID}/complete.
func (s *Server) CompleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "tripID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var body CompleteTripRequest
	if err := decodeBody(r, &body); err != nil {
		bodyError(w, err)
		return
	}
	if body.EndOdometerKm == nil {
		requestError(w, "end_odometer_km is required")
		return
	}
	trip, err := s.trips.Complete(r.Context(), id, userID(r), *body.EndOdometerKm)
	if err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// DeleteTrip handles DELETE /trips/{tripID}.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "tripID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.trips.Delete(r.Context(), id, userID(r)); err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// tripToResponse converts a domain.Trip into its JSON representation.
func tripToResponse(t domain.Trip) Trip {
	return Trip{
		ID:                 t.ID,
		VehicleID:          t.VehicleID,
		UserID:             t.UserID,
		Timestamp:          t.Timestamp,
		StartOdometerKm:    t.StartOdometerKm,
		EndOdometerKm:      t.EndOdometerKm,
		DistanceKm:         t.DistanceKm,
		DistanceSource:     t.DistanceSource,
		Purpose:            t.Purpose,
		StartAddress:       t.StartAddress,
		EndAddress:         t.EndAddress,
		Notes:              t.Notes,
		OdometerCalculated: t.OdometerCalculated,
		Basis:              t.Basis,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}
