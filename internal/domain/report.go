package domain

import (
	"time"

	"github.com/google/uuid"
)

// PrivateKmAnnualLimit is the yearly private-use allowance above which a
// company car becomes subject to bijtelling.
const PrivateKmAnnualLimit = 500.0

// ReportRow is a single trip line in a tax report. It is a flat view so the
// handler can render it as JSON or CSV without further lookups.
type ReportRow struct {
	TripID          uuid.UUID
	Date            string // "2006-01-02" formatted date
	Time            string // "15:04" formatted local time
	Purpose         Purpose
	StartAddress    string
	EndAddress      string
	StartOdometerKm float64
	EndOdometerKm   *float64
	DistanceKm      *float64
	Calculated      bool
	Notes           string
}

// ReportTotals aggregates distances per purpose over the report period.
type ReportTotals struct {
	BusinessKm      float64
	PrivateKm       float64
	CommuteKm       float64
	TotalKm         float64
	Trips           int
	IncompleteTrips int
	CalculatedTrips int
	// PrivateLimitExceeded is set when PrivateKm exceeds PrivateKmAnnualLimit.
	PrivateLimitExceeded bool
}

// Report is the mileage report for one vehicle over [From, To).
type Report struct {
	Vehicle Vehicle
	From    time.Time
	To      time.Time
	Rows    []ReportRow
	Totals  ReportTotals
}
