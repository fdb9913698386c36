package domain

import (
	"time"

	"github.com/google/uuid"
)

// TrackingMode selects how trip odometer values are obtained for a vehicle.
type TrackingMode string

const (
	// TrackingManual means the driver enters start (and end) odometer values.
	TrackingManual TrackingMode = "manual"
	// TrackingAutoCalculate means odometer values are interpolated from
	// the vehicle's periodic meterstand readings.
	TrackingAutoCalculate TrackingMode = "auto_calculate"
)

// Valid reports whether m is a known tracking mode.
func (m TrackingMode) Valid() bool {
	return m == TrackingManual || m == TrackingAutoCalculate
}

// Vehicle is a car in a user's garage. Trips and readings belong to a vehicle.
// LicensePlate is stored normalised: upper case without separators.
type Vehicle struct {
	ID                uuid.UUID
	OwnerID           uuid.UUID
	LicensePlate      string
	Name              string
	TrackingMode      TrackingMode
	InitialOdometerKm float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// VehicleShare grants a second user permission to register trips
// against a vehicle they do not own.
type VehicleShare struct {
	VehicleID uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
}
