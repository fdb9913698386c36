package odometer

import (
	"github.com/google/uuid"

	"github.com/pkordes/ritlog/internal/domain"
)

// Milestones are the odometer values worth congratulating a driver on, ascending.
var Milestones = []float64{10000, 25000, 50000, 75000, 100000, 150000, 200000, 250000, 500000}

// RecentTripWindow is how many of a vehicle's latest trips are scanned for
// the previous highest odometer.
const RecentTripWindow = 10

// DetectMilestones returns every milestone m with previousHighest < m <= newKm,
// ascending. A nil previousHighest (first registration) yields none.
func DetectMilestones(previousHighest *float64, newKm float64) []float64 {
	if previousHighest == nil {
		return nil
	}
	var crossed []float64
	for _, m := range Milestones {
		if *previousHighest < m && m <= newKm {
			crossed = append(crossed, m)
		}
	}
	return crossed
}

// PreviousHighest scans recent (newest first) for the latest effective
// odometer strictly below newKm, skipping the trip identified by exclude.
// Only the first RecentTripWindow trips are considered.
func PreviousHighest(recent []domain.Trip, newKm float64, exclude uuid.UUID) *float64 {
	if len(recent) > RecentTripWindow {
		recent = recent[:RecentTripWindow]
	}
	for _, t := range recent {
		if t.ID == exclude {
			continue
		}
		if km := domain.EffectiveOdometer(t); km < newKm {
			return &km
		}
	}
	return nil
}
