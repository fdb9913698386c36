package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/service"
)

// ReadingRequest is the body of POST /vehicles/{id}/readings.
type ReadingRequest struct {
	Timestamp  time.Time `json:"timestamp"`
	OdometerKm *float64  `json:"odometer_km"`
	Notes      string    `json:"notes,omitempty"`
}

// Reading is the JSON representation of a meterstand reading.
type Reading struct {
	ID         uuid.UUID          `json:"id"`
	VehicleID  uuid.UUID          `json:"vehicle_id"`
	Timestamp  time.Time          `json:"timestamp"`
	OdometerKm float64            `json:"odometer_km"`
	Kind       domain.ReadingKind `json:"kind"`
	Notes      string             `json:"notes,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// CreateReading handles POST /vehicles/{vehicleID}/readings.
func (s *Server) CreateReading(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathUUID(r, "vehicleID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var body ReadingRequest
	if err := decodeBody(r, &body); err != nil {
		bodyError(w, err)
		return
	}
	if body.OdometerKm == nil {
		requestError(w, "odometer_km is required")
		return
	}
	created, err := s.readings.Create(r.Context(), service.CreateReadingInput{
		VehicleID:  vehicleID,
		UserID:     userID(r),
		Timestamp:  body.Timestamp,
		OdometerKm: *body.OdometerKm,
		Notes:      body.Notes,
	})
	if err != nil {
		serviceError(w, r, err, "vehicle not found")
		return
	}
	writeJSON(w, http.StatusCreated, readingToResponse(created))
}

// ListReadings handles GET /vehicles/{vehicleID}/readings, oldest first.
func (s *Server) ListReadings(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathUUID(r, "vehicleID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	readings, err := s.readings.List(r.Context(), vehicleID, userID(r))
	if err != nil {
		serviceError(w, r, err, "vehicle not found")
		return
	}
	out := make([]Reading, len(readings))
	for i, rd := range readings {
		out[i] = readingToResponse(rd)
	}
	writeJSON(w, http.StatusOK, out)
}

// DeleteReading handles DELETE /vehicles/{vehicleID}/readings/{readingID}.
func (s *Server) DeleteReading(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathUUID(r, "vehicleID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	readingID, err := pathUUID(r, "readingID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.readings.Delete(r.Context(), vehicleID, readingID, userID(r)); err != nil {
		serviceError(w, r, err, "reading not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readingToResponse(rd domain.OdometerReading) Reading {
	return Reading{
		ID:         rd.ID,
		VehicleID:  rd.VehicleID,
		Timestamp:  rd.Timestamp,
		OdometerKm: rd.OdometerKm,
		Kind:       rd.Kind,
		Notes:      rd.Notes,
		CreatedAt:  rd.CreatedAt,
	}
}
