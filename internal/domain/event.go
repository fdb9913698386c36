package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the job type under which a side-channel event is enqueued.
type EventType string

const (
	EventMilestone      EventType = "vehicle.milestone"
	EventGapDiagnostic  EventType = "trip.gap_detected"
	EventIncompleteTrip EventType = "trip.incomplete"
)

// GapSeverity grades how far a new start odometer jumped past the previous one.
type GapSeverity string

const (
	SeverityNormal GapSeverity = "normal"
	SeverityMedium GapSeverity = "medium"
	SeverityHigh   GapSeverity = "high"
	SeverityUrgent GapSeverity = "urgent"
)

// MilestoneEvent reports that a vehicle crossed a round-number odometer value.
type MilestoneEvent struct {
	VehicleID   uuid.UUID `json:"vehicle_id"`
	TripID      uuid.UUID `json:"trip_id"`
	MilestoneKm float64   `json:"milestone_km"`
	OdometerKm  float64   `json:"odometer_km"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// GapDiagnosticEvent reports unregistered kilometres between the previous
// trip and a newly registered one.
type GapDiagnosticEvent struct {
	VehicleID     uuid.UUID   `json:"vehicle_id"`
	TripID        uuid.UUID   `json:"trip_id"`
	PriorKm       float64     `json:"prior_km"`
	StartKm       float64     `json:"start_km"`
	GapKm         float64     `json:"gap_km"`
	Severity      GapSeverity `json:"severity"`
	TripTimestamp time.Time   `json:"trip_timestamp"`
}

// IncompleteTripEvent is a reminder that a trip still lacks an end odometer.
type IncompleteTripEvent struct {
	VehicleID     uuid.UUID `json:"vehicle_id"`
	TripID        uuid.UUID `json:"trip_id"`
	UserID        uuid.UUID `json:"user_id"`
	TripTimestamp time.Time `json:"trip_timestamp"`
	Calculated    bool      `json:"calculated"`
}

// Job is a queued side-channel event awaiting dispatch.
type Job struct {
	ID        uuid.UUID
	Type      EventType
	Payload   []byte
	Attempts  int
	LastError string
	CreatedAt time.Time
}
