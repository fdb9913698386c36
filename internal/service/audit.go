package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/odometer"
	"github.com/pkordes/ritlog/internal/repo"
)

// Finding is one trip that no longer fits the vehicle's history. Trips lists
// chronology breaks against other trips; Meterstand lists trip endpoints that
// contradict the meterstand series.
type Finding struct {
	Trip       domain.Trip
	Trips      []*odometer.ChronologyError
	Meterstand []*odometer.ChronologyError
}

// AuditService re-checks a vehicle's stored history. Data entered before a
// rule existed, or edited directly in the database, shows up here.
type AuditService struct {
	trips    repo.TripRepo
	readings repo.ReadingRepo
	now      func() time.Time
}

// NewAuditService constructs an AuditService.
func NewAuditService(trips repo.TripRepo, readings repo.ReadingRepo) *AuditService {
	return &AuditService{trips: trips, readings: readings, now: time.Now}
}

// Audit reports every violation in the vehicle's history, oldest trip first.
// Calculated trips are only checked against the meterstand series.
func (s *AuditService) Audit(ctx context.Context, vehicleID uuid.UUID) ([]Finding, error) {
	trips, err := s.trips.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("service.AuditService.Audit: %w", err)
	}
	series, err := s.readings.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("service.AuditService.Audit: %w", err)
	}

	now := s.now()
	findings := []Finding{}
	for _, t := range trips {
		f := Finding{Trip: t}
		if !t.OdometerCalculated {
			f.Trips = odometer.ValidateAll(withoutTrip(trips, t.ID), odometer.Proposal{
				Timestamp: t.Timestamp,
				StartKm:   t.StartOdometerKm,
				EndKm:     t.EndOdometerKm,
			}, now)
		}
		for _, r := range domain.TripReadings(t) {
			var ce *odometer.ChronologyError
			if err := odometer.ValidateReading(series, r.Timestamp, r.OdometerKm, now); errors.As(err, &ce) {
				f.Meterstand = append(f.Meterstand, ce)
			}
		}
		if len(f.Trips) > 0 || len(f.Meterstand) > 0 {
			findings = append(findings, f)
		}
	}
	return findings, nil
}
