// Package domain contains the core data types for the mileage registration
// backend. It is imported by every other internal package (odometer, repo,
// service, handler) and depends only on uuid.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Purpose is the tax classification of a trip.
type Purpose string

const (
	PurposeBusiness Purpose = "business"
	PurposePrivate  Purpose = "private"
	PurposeCommute  Purpose = "commute"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeBusiness, PurposePrivate, PurposeCommute:
		return true
	}
	return false
}

// DistanceSource records where a trip's distance came from.
type DistanceSource string

const (
	DistanceProvided DistanceSource = "provided"
	DistanceOdometer DistanceSource = "odometer"
	DistanceRoute    DistanceSource = "route"
)

// InterpolationMethod names how a calculated odometer was derived.
const InterpolationMethodLinear = "linear"

// InterpolationBasis is the provenance of a calculated trip odometer: the
// meterstand readings that bracketed the trip time.
type InterpolationBasis struct {
	PreviousReadingID uuid.UUID  `json:"previous_reading_id"`
	NextReadingID     *uuid.UUID `json:"next_reading_id,omitempty"`
	Method            string     `json:"method"`
}

// Trip is a single journey registration for a vehicle.
// EndOdometerKm is nil until the trip is completed.
type Trip struct {
	ID                 uuid.UUID
	VehicleID          uuid.UUID
	UserID             uuid.UUID
	Timestamp          time.Time
	StartOdometerKm    float64
	EndOdometerKm      *float64
	DistanceKm         *float64
	DistanceSource     DistanceSource
	Purpose            Purpose
	StartAddress       string
	EndAddress         string
	Notes              string
	OdometerCalculated bool
	Basis              *InterpolationBasis
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Complete reports whether an end odometer has been attached.
func (t Trip) Complete() bool {
	return t.EndOdometerKm != nil
}

// EffectiveOdometer returns the latest known odometer value of the trip:
// the end reading when present, otherwise the start reading.
// All chronology, gap and milestone code reads odometers through this.
func EffectiveOdometer(t Trip) float64 {
	if t.EndOdometerKm != nil {
		return *t.EndOdometerKm
	}
	return t.StartOdometerKm
}
