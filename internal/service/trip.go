// Package service contains the business logic for the mileage registration
// backend. Services validate inputs, enforce access and chronology rules, and
// orchestrate repo calls. No SQL lives here; services depend on repo
// interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/odometer"
	"github.com/pkordes/ritlog/internal/repo"
)

// CreateTripInput is a trip registration request. StartOdometerKm may be
// omitted on auto_calculate vehicles, in which case the odometer is
// interpolated from the vehicle's meterstand readings.
type CreateTripInput struct {
	VehicleID       uuid.UUID
	UserID          uuid.UUID
	Timestamp       time.Time
	StartOdometerKm *float64
	EndOdometerKm   *float64
	DistanceKm      *float64
	// DistanceSource labels DistanceKm; defaults to provided.
	DistanceSource domain.DistanceSource
	Purpose        domain.Purpose
	StartAddress   string
	EndAddress     string
	Notes          string
}

// UpdateTripInput carries the descriptive fields of a trip. Odometer values
// are changed through Complete only.
type UpdateTripInput struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Purpose      domain.Purpose
	StartAddress string
	EndAddress   string
	Notes        string
}

// TripService implements trip registration: odometer calculation, chronology
// validation and the best-effort milestone, gap and incomplete-trip notices.
type TripService struct {
	vehicles repo.VehicleRepo
	trips    repo.TripRepo
	readings repo.ReadingRepo
	locker   VehicleLocker
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewTripService constructs a TripService. A nil logger falls back to slog.Default.
func NewTripService(vehicles repo.VehicleRepo, trips repo.TripRepo, readings repo.ReadingRepo,
	locker VehicleLocker, notifier Notifier, logger *slog.Logger) *TripService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TripService{
		vehicles: vehicles,
		trips:    trips,
		readings: readings,
		locker:   locker,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the wall clock used for the future-timestamp rule.
func (s *TripService) WithClock(now func() time.Time) *TripService {
	s.now = now
	return s
}

// Create validates and persists a new trip. On an auto_calculate vehicle an
// omitted start odometer is interpolated from the meterstand readings; a
// supplied one is validated like a manual registration.
//
// Returns domain.ErrNotFound for an unknown vehicle, domain.ErrForbidden when
// the user has no access, and an error wrapping domain.ErrValidation (often an
// *odometer.ChronologyError) when the trip breaks a rule. Notification
// failures after the write are logged, never returned.
func (s *TripService) Create(ctx context.Context, in CreateTripInput) (domain.Trip, error) {
	if err := validateCreateTrip(in); err != nil {
		return domain.Trip{}, err
	}
	vehicle, err := authorize(ctx, s.vehicles, in.VehicleID, in.UserID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}

	calculate := in.StartOdometerKm == nil
	if calculate && vehicle.TrackingMode != domain.TrackingAutoCalculate {
		return domain.Trip{}, fmt.Errorf("%w: start odometer is required", domain.ErrValidation)
	}

	var (
		created  domain.Trip
		priorKm  float64
		hasPrior bool
	)
	err = s.locker.WithVehicleLock(ctx, in.VehicleID, func(ctx context.Context) error {
		trip := domain.Trip{
			VehicleID:    in.VehicleID,
			UserID:       in.UserID,
			Timestamp:    in.Timestamp,
			Purpose:      in.Purpose,
			StartAddress: strings.TrimSpace(in.StartAddress),
			EndAddress:   strings.TrimSpace(in.EndAddress),
			Notes:        in.Notes,
		}

		if calculate {
			if err := checkNotFuture(in.Timestamp, s.now()); err != nil {
				return err
			}
			readings, err := s.readings.ListByVehicle(ctx, in.VehicleID)
			if err != nil {
				return err
			}
			res, err := odometer.Interpolate(readings, in.Timestamp, in.DistanceKm)
			if err != nil {
				return err
			}
			trip.StartOdometerKm = res.StartKm
			trip.EndOdometerKm = res.EndKm
			trip.OdometerCalculated = true
			trip.Basis = &res.Basis
		} else {
			history, err := s.trips.ListByVehicle(ctx, in.VehicleID)
			if err != nil {
				return err
			}
			proposal := odometer.Proposal{Timestamp: in.Timestamp, StartKm: *in.StartOdometerKm, EndKm: in.EndOdometerKm}
			if err := odometer.Validate(history, proposal, s.now()); err != nil {
				return err
			}
			trip.StartOdometerKm = *in.StartOdometerKm
			trip.EndOdometerKm = in.EndOdometerKm
			priorKm, hasPrior = odometer.PriorOdometer(history, in.Timestamp)
		}

		setDistance(&trip, in.DistanceKm, in.DistanceSource)

		created, err = s.trips.Create(ctx, trip)
		return err
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}

	effects := []sideEffect{{"milestones", func(ctx context.Context) error {
		return s.notifyMilestones(ctx, created)
	}}}
	if hasPrior {
		effects = append(effects, sideEffect{"gap_diagnostic", func(ctx context.Context) error {
			return s.notifyGap(ctx, created, priorKm)
		}})
	}
	if !created.Complete() {
		effects = append(effects, sideEffect{"incomplete_trip", func(ctx context.Context) error {
			return s.notifier.Enqueue(ctx, domain.EventIncompleteTrip, domain.IncompleteTripEvent{
				VehicleID:     created.VehicleID,
				TripID:        created.ID,
				UserID:        created.UserID,
				TripTimestamp: created.Timestamp,
				Calculated:    created.OdometerCalculated,
			})
		}})
	}
	runSideEffects(ctx, s.logger, tripAttrs(created), effects...)

	return created, nil
}

// Complete attaches the end odometer to an incomplete trip.
// Returns domain.ErrConflict if the trip already has one.
func (s *TripService) Complete(ctx context.Context, tripID, userID uuid.UUID, endKm float64) (domain.Trip, error) {
	trip, err := s.GetByID(ctx, tripID, userID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Complete: %w", err)
	}
	if endKm < 0 || math.IsNaN(endKm) {
		return domain.Trip{}, fmt.Errorf("%w: end odometer must not be negative", domain.ErrValidation)
	}

	var updated domain.Trip
	err = s.locker.WithVehicleLock(ctx, trip.VehicleID, func(ctx context.Context) error {
		// Re-read under the lock; a concurrent Complete may have won.
		current, err := s.trips.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		if current.Complete() {
			return fmt.Errorf("%w: trip already has an end odometer", domain.ErrConflict)
		}

		if current.OdometerCalculated {
			if endKm <= current.StartOdometerKm {
				return &odometer.ChronologyError{Kind: odometer.EndBeforeStart, NeighborKm: current.StartOdometerKm}
			}
		} else {
			history, err := s.trips.ListByVehicle(ctx, current.VehicleID)
			if err != nil {
				return err
			}
			history = withoutTrip(history, current.ID)
			proposal := odometer.Proposal{Timestamp: current.Timestamp, StartKm: current.StartOdometerKm, EndKm: &endKm}
			if err := odometer.Validate(history, proposal, s.now()); err != nil {
				return err
			}
		}

		current.EndOdometerKm = &endKm
		if current.DistanceKm == nil || current.DistanceSource == domain.DistanceOdometer {
			current.DistanceKm = nil
			setDistance(&current, nil, "")
		}
		updated, err = s.trips.Update(ctx, current)
		return err
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Complete: %w", err)
	}

	runSideEffects(ctx, s.logger, tripAttrs(updated), sideEffect{"milestones", func(ctx context.Context) error {
		return s.notifyMilestones(ctx, updated)
	}})
	return updated, nil
}

// GetByID returns a trip the user has access to.
func (s *TripService) GetByID(ctx context.Context, id, userID uuid.UUID) (domain.Trip, error) {
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	if _, err := authorize(ctx, s.vehicles, trip.VehicleID, userID); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	return trip, nil
}

// ListByVehicle returns one page of a vehicle's trips, newest first.
// Items is never nil.
func (s *TripService) ListByVehicle(ctx context.Context, vehicleID, userID uuid.UUID, p domain.PaginationParams) (domain.Page[domain.Trip], error) {
	if _, err := authorize(ctx, s.vehicles, vehicleID, userID); err != nil {
		return domain.Page[domain.Trip]{}, fmt.Errorf("service.TripService.ListByVehicle: %w", err)
	}
	trips, total, err := s.trips.ListByVehiclePaged(ctx, vehicleID, p)
	if err != nil {
		return domain.Page[domain.Trip]{}, fmt.Errorf("service.TripService.ListByVehicle: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return domain.Page[domain.Trip]{Items: trips, Total: total, Params: p}, nil
}

// Update changes the purpose, addresses and notes of a trip.
func (s *TripService) Update(ctx context.Context, in UpdateTripInput) (domain.Trip, error) {
	if !in.Purpose.Valid() {
		return domain.Trip{}, fmt.Errorf("%w: purpose must be business, private or commute", domain.ErrValidation)
	}
	trip, err := s.GetByID(ctx, in.ID, in.UserID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	trip.Purpose = in.Purpose
	trip.StartAddress = strings.TrimSpace(in.StartAddress)
	trip.EndAddress = strings.TrimSpace(in.EndAddress)
	trip.Notes = in.Notes

	result, err := s.trips.Update(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	return result, nil
}

// Delete removes a trip the user has access to.
func (s *TripService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.GetByID(ctx, id, userID); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	if err := s.trips.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}

// notifyMilestones enqueues one event per milestone crossed by trip.
func (s *TripService) notifyMilestones(ctx context.Context, trip domain.Trip) error {
	recent, err := s.trips.ListRecent(ctx, trip.VehicleID, odometer.RecentTripWindow+1)
	if err != nil {
		return fmt.Errorf("list recent trips: %w", err)
	}
	newKm := domain.EffectiveOdometer(trip)
	var errs []error
	for _, m := range odometer.DetectMilestones(odometer.PreviousHighest(recent, newKm, trip.ID), newKm) {
		errs = append(errs, s.notifier.Enqueue(ctx, domain.EventMilestone, domain.MilestoneEvent{
			VehicleID:   trip.VehicleID,
			TripID:      trip.ID,
			MilestoneKm: m,
			OdometerKm:  newKm,
			OccurredAt:  trip.Timestamp,
		}))
	}
	return errors.Join(errs...)
}

func (s *TripService) notifyGap(ctx context.Context, trip domain.Trip, priorKm float64) error {
	gap := odometer.ComputeGap(priorKm, trip.StartOdometerKm)
	if !gap.Detected {
		return nil
	}
	return s.notifier.Enqueue(ctx, domain.EventGapDiagnostic, domain.GapDiagnosticEvent{
		VehicleID:     trip.VehicleID,
		TripID:        trip.ID,
		PriorKm:       priorKm,
		StartKm:       trip.StartOdometerKm,
		GapKm:         gap.Km,
		Severity:      gap.Severity,
		TripTimestamp: trip.Timestamp,
	})
}

// validateCreateTrip enforces the input rules that need no stored data.
func validateCreateTrip(in CreateTripInput) error {
	if in.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", domain.ErrValidation)
	}
	if !in.Purpose.Valid() {
		return fmt.Errorf("%w: purpose must be business, private or commute", domain.ErrValidation)
	}
	for name, v := range map[string]*float64{
		"start odometer": in.StartOdometerKm,
		"end odometer":   in.EndOdometerKm,
		"distance":       in.DistanceKm,
	} {
		if v != nil && (*v < 0 || math.IsNaN(*v)) {
			return fmt.Errorf("%w: %s must not be negative", domain.ErrValidation, name)
		}
	}
	if in.StartOdometerKm == nil && in.EndOdometerKm != nil {
		return fmt.Errorf("%w: end odometer requires a start odometer", domain.ErrValidation)
	}
	if in.DistanceSource != "" && in.DistanceSource != domain.DistanceProvided && in.DistanceSource != domain.DistanceRoute {
		return fmt.Errorf("%w: distance source must be provided or route", domain.ErrValidation)
	}
	return nil
}

// checkNotFuture applies the future-timestamp rule to calculated trips, which
// skip the rest of the chronology check.
func checkNotFuture(ts, now time.Time) error {
	if ts.After(now.Add(odometer.FutureTolerance)) {
		return &odometer.ChronologyError{Kind: odometer.FutureTimestamp}
	}
	return nil
}

// setDistance records an explicit distance, or derives one from the
// odometer pair when both ends are known.
func setDistance(t *domain.Trip, distance *float64, source domain.DistanceSource) {
	switch {
	case distance != nil:
		d := *distance
		t.DistanceKm = &d
		t.DistanceSource = source
		if source == "" {
			t.DistanceSource = domain.DistanceProvided
		}
	case t.EndOdometerKm != nil:
		d := *t.EndOdometerKm - t.StartOdometerKm
		t.DistanceKm = &d
		t.DistanceSource = domain.DistanceOdometer
	}
}

func withoutTrip(trips []domain.Trip, id uuid.UUID) []domain.Trip {
	out := make([]domain.Trip, 0, len(trips))
	for _, t := range trips {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func tripAttrs(t domain.Trip) []any {
	return []any{"vehicle_id", t.VehicleID, "trip_id", t.ID}
}
