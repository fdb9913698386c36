package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/odometer"
	"github.com/pkordes/ritlog/internal/repo"
)

// CreateReadingInput is a new meterstand entry.
type CreateReadingInput struct {
	VehicleID  uuid.UUID
	UserID     uuid.UUID
	Timestamp  time.Time
	OdometerKm float64
	Notes      string
}

// ReadingService manages the meterstand series of a vehicle. A new reading
// may bracket calculated trips that were still waiting for one; those are
// re-interpolated after the reading is stored.
type ReadingService struct {
	vehicles repo.VehicleRepo
	readings repo.ReadingRepo
	trips    repo.TripRepo
	locker   VehicleLocker
	logger   *slog.Logger
	now      func() time.Time
}

// NewReadingService constructs a ReadingService. A nil logger falls back to slog.Default.
func NewReadingService(vehicles repo.VehicleRepo, readings repo.ReadingRepo, trips repo.TripRepo,
	locker VehicleLocker, logger *slog.Logger) *ReadingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadingService{
		vehicles: vehicles,
		readings: readings,
		trips:    trips,
		locker:   locker,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the wall clock used for the future-timestamp rule.
func (s *ReadingService) WithClock(now func() time.Time) *ReadingService {
	s.now = now
	return s
}

// Create validates and stores a meterstand reading. The reading must not be
// lower than an earlier reading nor higher than a later one.
func (s *ReadingService) Create(ctx context.Context, in CreateReadingInput) (domain.OdometerReading, error) {
	if in.Timestamp.IsZero() {
		return domain.OdometerReading{}, fmt.Errorf("%w: timestamp is required", domain.ErrValidation)
	}
	if math.IsNaN(in.OdometerKm) {
		return domain.OdometerReading{}, fmt.Errorf("%w: odometer is not a number", domain.ErrValidation)
	}
	if _, err := authorize(ctx, s.vehicles, in.VehicleID, in.UserID); err != nil {
		return domain.OdometerReading{}, fmt.Errorf("service.ReadingService.Create: %w", err)
	}

	var created domain.OdometerReading
	err := s.locker.WithVehicleLock(ctx, in.VehicleID, func(ctx context.Context) error {
		series, err := s.readings.ListByVehicle(ctx, in.VehicleID)
		if err != nil {
			return err
		}
		if err := odometer.ValidateReading(series, in.Timestamp, in.OdometerKm, s.now()); err != nil {
			return err
		}
		created, err = s.readings.Create(ctx, domain.OdometerReading{
			VehicleID:  in.VehicleID,
			Timestamp:  in.Timestamp,
			OdometerKm: in.OdometerKm,
			Kind:       domain.KindMeterstand,
			Notes:      in.Notes,
		})
		if err != nil {
			return err
		}

		runSideEffects(ctx, s.logger, []any{"vehicle_id", in.VehicleID, "reading_id", created.ID},
			sideEffect{"recalculate_trips", func(ctx context.Context) error {
				return s.recalculate(ctx, append(series, created), created)
			}})
		return nil
	})
	if err != nil {
		return domain.OdometerReading{}, fmt.Errorf("service.ReadingService.Create: %w", err)
	}
	return created, nil
}

// List returns the vehicle's meterstand readings, oldest first. Never nil.
func (s *ReadingService) List(ctx context.Context, vehicleID, userID uuid.UUID) ([]domain.OdometerReading, error) {
	if _, err := authorize(ctx, s.vehicles, vehicleID, userID); err != nil {
		return nil, fmt.Errorf("service.ReadingService.List: %w", err)
	}
	readings, err := s.readings.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("service.ReadingService.List: %w", err)
	}
	if readings == nil {
		return []domain.OdometerReading{}, nil
	}
	return readings, nil
}

// Delete removes a reading. Trips already calculated from it keep their values.
func (s *ReadingService) Delete(ctx context.Context, vehicleID, readingID, userID uuid.UUID) error {
	if _, err := authorize(ctx, s.vehicles, vehicleID, userID); err != nil {
		return fmt.Errorf("service.ReadingService.Delete: %w", err)
	}
	if err := s.readings.Delete(ctx, vehicleID, readingID); err != nil {
		return fmt.Errorf("service.ReadingService.Delete: %w", err)
	}
	return nil
}

// recalculate re-interpolates the incomplete calculated trips before added
// against the extended series. A trip is written back only when its values
// change. Failures for one trip do not stop the others.
func (s *ReadingService) recalculate(ctx context.Context, series []domain.OdometerReading, added domain.OdometerReading) error {
	pending, err := s.trips.ListIncompleteCalculated(ctx, added.VehicleID, added.Timestamp)
	if err != nil {
		return fmt.Errorf("list incomplete trips: %w", err)
	}

	var errs []error
	for _, trip := range pending {
		res, err := odometer.Interpolate(series, trip.Timestamp, trip.DistanceKm)
		if err != nil {
			errs = append(errs, fmt.Errorf("trip %s: %w", trip.ID, err))
			continue
		}
		if res.StartKm == trip.StartOdometerKm && res.EndKm == nil {
			continue
		}
		trip.StartOdometerKm = res.StartKm
		trip.EndOdometerKm = res.EndKm
		trip.Basis = &res.Basis
		if _, err := s.trips.Update(ctx, trip); err != nil {
			errs = append(errs, fmt.Errorf("trip %s: %w", trip.ID, err))
			continue
		}
		s.logger.InfoContext(ctx, "recalculated trip odometer",
			"vehicle_id", trip.VehicleID, "trip_id", trip.ID, "start_km", res.StartKm, "complete", res.EndKm != nil)
	}
	return errors.Join(errs...)
}
