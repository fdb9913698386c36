package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReadingKind classifies a point-in-time odometer observation.
type ReadingKind string

const (
	// KindMeterstand is a periodic manual odometer reading.
	KindMeterstand ReadingKind = "meterstand"
	// KindTripStart is the start endpoint of a logged trip.
	KindTripStart ReadingKind = "trip_start"
	// KindTripEnd is the end endpoint of a logged trip.
	KindTripEnd ReadingKind = "trip_end"
)

// OdometerReading is a single observation of a vehicle's odometer.
// Only meterstand readings are stored as rows; trip endpoints are derived
// from Trip records by TripReadings.
type OdometerReading struct {
	ID         uuid.UUID
	VehicleID  uuid.UUID
	Timestamp  time.Time
	OdometerKm float64
	Kind       ReadingKind
	Notes      string
	CreatedAt  time.Time
}

// TripReadings returns the start and (when known) end readings of t.
// The end reading shares the trip timestamp because trips carry one time.
func TripReadings(t Trip) []OdometerReading {
	out := []OdometerReading{{
		ID:         t.ID,
		VehicleID:  t.VehicleID,
		Timestamp:  t.Timestamp,
		OdometerKm: t.StartOdometerKm,
		Kind:       KindTripStart,
	}}
	if t.EndOdometerKm != nil {
		out = append(out, OdometerReading{
			ID:         t.ID,
			VehicleID:  t.VehicleID,
			Timestamp:  t.Timestamp,
			OdometerKm: *t.EndOdometerKm,
			Kind:       KindTripEnd,
		})
	}
	return out
}
