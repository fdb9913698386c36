package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/service"
)

// VehicleRequest is the body of POST /vehicles.
type VehicleRequest struct {
	LicensePlate      string              `json:"license_plate"`
	Name              string              `json:"name"`
	TrackingMode      domain.TrackingMode `json:"tracking_mode,omitempty"`
	InitialOdometerKm float64             `json:"initial_odometer_km"`
}

// TrackingModeRequest is the body of PUT /vehicles/{id}/tracking-mode.
type TrackingModeRequest struct {
	TrackingMode domain.TrackingMode `json:"tracking_mode"`
}

// ShareRequest is the body of POST /vehicles/{id}/shares.
type ShareRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// Vehicle is the JSON representation of domain.Vehicle.
type Vehicle struct {
	ID                uuid.UUID           `json:"id"`
	OwnerID           uuid.UUID           `json:"owner_id"`
	LicensePlate      string              `json:"license_plate"`
	Name              string              `json:"name"`
	TrackingMode      domain.TrackingMode `json:"tracking_mode"`
	InitialOdometerKm float64             `json:"initial_odometer_km"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// CreateVehicle handles POST /vehicles.
func (s *Server) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var body VehicleRequest
	if err := decodeBody(r, &body); err != nil {
		bodyError(w, err)
		return
	}
	created, err := s.vehicles.Create(r.Context(), service.CreateVehicleInput{
		OwnerID:           userID(r),
		LicensePlate:      body.LicensePlate,
		Name:              body.Name,
		TrackingMode:      body.TrackingMode,
		InitialOdometerKm: body.InitialOdometerKm,
	})
	if err != nil {
		serviceError(w, r, err, "vehicle not found")
		return
	}
	writeJSON(w, http.StatusCreated, vehicleToResponse(created))
}

// ListVehicles handles GET /vehicles: owned and shared vehicles.
func (s *Server) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.vehicles.ListForUser(r.Context(), userID(r))
	if err != nil {
		serviceError(w, r, err, "vehicle not found")
		return
	}
	out := make([]Vehicle, len(vehicles))
	for i, v := range vehicles {
		out[i] = vehicleToResponse(v)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetVehicle handles GET /vehicles/{vehicleID}.
func (s *Server) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "vehicleID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	v, err := s.vehicles.Get(r.Context(), id, userID(r))
	if err != nil {
		serviceError(w, r, err, "vehicle not found")
		return
	}
	writeJSON(w, http.StatusOK, vehicleToResponse(v))
}

// DeleteVehicle handles DELETE /vehicles/{vehicleID}. Owner only.
func (s *Server) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "vehicleID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.vehicles.Delete(r.Context(), id, userID(r)); err != nil {
		serviceError(w, r, err, "vehicle not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateTrackingMode handles PUT /vehicles/{vehicleID}/tracking-mode.
func (s *Server) UpdateTrackingMode(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "vehicleID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var body TrackingModeRequest
	if err := decodeBody(r, &body); err != nil {
		bodyError(w, err)
		return
	}
	v, err := s.vehicles.UpdateTrackingMode(r.Context(), id, userID(r), body.TrackingMode)
	if err != nil {
		serviceError(w, r, err, "vehicle not found")
		return
	}
	writeJSON(w, http.StatusOK, vehicleToResponse(v))
}

// ShareVehicle handles POST /vehicles/{vehicleID}/shares.
func (s *Server) ShareVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "vehicleID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var body ShareRequest
	if err := decodeBody(r, &body); err != nil {
		bodyError(w, err)
		return
	}
	if body.UserID == uuid.Nil {
		requestError(w, "user_id is required")
		return
	}
	if err := s.vehicles.Share(r.Context(), id, userID(r), body.UserID); err != nil {
		serviceError(w, r, err, "vehicle not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnshareVehicle handles DELETE /vehicles/{vehicleID}/shares/{userID}.
func (s *Server) UnshareVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "vehicleID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	other, err := pathUUID(r, "userID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.vehicles.Unshare(r.Context(), id, userID(r), other); err != nil {
		serviceError(w, r, err, "share not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func vehicleToResponse(v domain.Vehicle) Vehicle {
	return Vehicle{
		ID:                v.ID,
		OwnerID:           v.OwnerID,
		LicensePlate:      v.LicensePlate,
		Name:              v.Name,
		TrackingMode:      v.TrackingMode,
		InitialOdometerKm: v.InitialOdometerKm,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}
}
