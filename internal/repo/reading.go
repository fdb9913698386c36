package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/ritlog/internal/domain"
)

// ReadingRepo defines the persistence operations for meterstand readings.
// All single-row operations are scoped by vehicleID to enforce ownership.
type ReadingRepo interface {
	// Create inserts a new meterstand reading and returns the persisted record.
	Create(ctx context.Context, reading domain.OdometerReading) (domain.OdometerReading, error)

	// ListByVehicle returns all meterstand readings of a vehicle ordered by time ascending.
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.OdometerReading, error)

	// Delete removes a reading by ID, scoped to the given vehicle.
	// Returns domain.ErrNotFound if no such reading exists for that vehicle.
	Delete(ctx context.Context, vehicleID, readingID uuid.UUID) error
}

// pgReadingRepo is the Postgres implementation of ReadingRepo.
type pgReadingRepo struct {
	db db
}

// NewReadingRepo constructs a ReadingRepo backed by the provided db connection.
func NewReadingRepo(db db) ReadingRepo {
	return &pgReadingRepo{db: db}
}

func (r *pgReadingRepo) Create(ctx context.Context, reading domain.OdometerReading) (domain.OdometerReading, error) {
	const q = `
		INSERT INTO odometer_readings (vehicle_id, recorded_at, odometer_km, kind, notes)
		VALUES (@vehicle_id, @recorded_at, @odometer_km, @kind, @notes)
		RETURNING id, vehicle_id, recorded_at, odometer_km, kind, notes, created_at`

	kind := reading.Kind
	if kind == "" {
		kind = domain.KindMeterstand
	}
	args := pgx.NamedArgs{
		"vehicle_id":  reading.VehicleID,
		"recorded_at": reading.Timestamp,
		"odometer_km": reading.OdometerKm,
		"kind":        string(kind),
		"notes":       reading.Notes,
	}

	result, err := scanReading(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.OdometerReading{}, fmt.Errorf("repo.ReadingRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgReadingRepo) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.OdometerReading, error) {
	const q = `
		SELECT id, vehicle_id, recorded_at, odometer_km, kind, notes, created_at
		FROM odometer_readings
		WHERE vehicle_id = @vehicle_id
		ORDER BY recorded_at, created_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID})
	if err != nil {
		return nil, fmt.Errorf("repo.ReadingRepo.ListByVehicle: %w", err)
	}
	readings, err := collect(rows, scanReading)
	if err != nil {
		return nil, fmt.Errorf("repo.ReadingRepo.ListByVehicle: scan: %w", err)
	}
	return readings, nil
}

func (r *pgReadingRepo) Delete(ctx context.Context, vehicleID, readingID uuid.UUID) error {
	const q = `DELETE FROM odometer_readings WHERE id = @id AND vehicle_id = @vehicle_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": readingID, "vehicle_id": vehicleID})
	if err != nil {
		return fmt.Errorf("repo.ReadingRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ReadingRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func scanReading(s scanner) (domain.OdometerReading, error) {
	var (
		rd        domain.OdometerReading
		id        pgtype.UUID
		vehicleID pgtype.UUID
		kind      string
	)
	err := s.Scan(&id, &vehicleID, &rd.Timestamp, &rd.OdometerKm, &kind, &rd.Notes, &rd.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OdometerReading{}, domain.ErrNotFound
		}
		return domain.OdometerReading{}, err
	}
	rd.ID = uuid.UUID(id.Bytes)
	rd.VehicleID = uuid.UUID(vehicleID.Bytes)
	rd.Kind = domain.ReadingKind(kind)
	return rd, nil
}
