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

// VehicleRepo defines the persistence operations for the garage: vehicles and
// the vehicle_shares join table.
type VehicleRepo interface {
	// Create inserts a vehicle. Returns domain.ErrConflict if the licence
	// plate is already registered.
	Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)

	// GetByID returns domain.ErrNotFound if no vehicle with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)

	// ListForUser returns vehicles the user owns or has shared access to,
	// ordered by licence plate.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Vehicle, error)

	// UpdateTrackingMode changes how odometer values are obtained for new trips.
	UpdateTrackingMode(ctx context.Context, id uuid.UUID, mode domain.TrackingMode) (domain.Vehicle, error)

	// Delete removes a vehicle and, by cascade, its readings, trips and shares.
	Delete(ctx context.Context, id uuid.UUID) error

	// Share grants userID access to the vehicle. Idempotent.
	Share(ctx context.Context, vehicleID, userID uuid.UUID) error

	// Unshare revokes access. Returns domain.ErrNotFound if no share exists.
	Unshare(ctx context.Context, vehicleID, userID uuid.UUID) error

	// HasAccess reports whether userID owns or shares the vehicle.
	HasAccess(ctx context.Context, vehicleID, userID uuid.UUID) (bool, error)
}

// pgVehicleRepo is the Postgres implementation of VehicleRepo.
type pgVehicleRepo struct {
	db db
}

// NewVehicleRepo constructs a VehicleRepo backed by the provided db connection.
func NewVehicleRepo(db db) VehicleRepo {
	return &pgVehicleRepo{db: db}
}

const vehicleColumns = `id, owner_id, license_plate, name, tracking_mode, initial_odometer_km, created_at, updated_at`

func (r *pgVehicleRepo) Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	q := `
		INSERT INTO vehicles (owner_id, license_plate, name, tracking_mode, initial_odometer_km)
		VALUES (@owner_id, @license_plate, @name, @tracking_mode, @initial_odometer_km)
		RETURNING ` + vehicleColumns

	args := pgx.NamedArgs{
		"owner_id":            v.OwnerID,
		"license_plate":       v.LicensePlate,
		"name":                v.Name,
		"tracking_mode":       string(v.TrackingMode),
		"initial_odometer_km": v.InitialOdometerKm,
	}

	result, err := scanVehicle(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.Create: %w: licence plate already registered", domain.ErrConflict)
		}
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgVehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	q := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = @id`

	result, err := scanVehicle(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgVehicleRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Vehicle, error) {
	q := `
		SELECT ` + vehicleColumns + `
		FROM vehicles v
		WHERE v.owner_id = @user_id
		   OR EXISTS (SELECT 1 FROM vehicle_shares s WHERE s.vehicle_id = v.id AND s.user_id = @user_id)
		ORDER BY v.license_plate`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.VehicleRepo.ListForUser: %w", err)
	}
	vehicles, err := collect(rows, scanVehicle)
	if err != nil {
		return nil, fmt.Errorf("repo.VehicleRepo.ListForUser: scan: %w", err)
	}
	return vehicles, nil
}

func (r *pgVehicleRepo) UpdateTrackingMode(ctx context.Context, id uuid.UUID, mode domain.TrackingMode) (domain.Vehicle, error) {
	q := `
		UPDATE vehicles
		SET tracking_mode = @tracking_mode,
		    updated_at    = now()
		WHERE id = @id
		RETURNING ` + vehicleColumns

	result, err := scanVehicle(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "tracking_mode": string(mode)}))
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.UpdateTrackingMode: %w", err)
	}
	return result, nil
}

func (r *pgVehicleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vehicles WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.VehicleRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.VehicleRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// Share is idempotent via ON CONFLICT DO NOTHING.
func (r *pgVehicleRepo) Share(ctx context.Context, vehicleID, userID uuid.UUID) error {
	const q = `
		INSERT INTO vehicle_shares (vehicle_id, user_id)
		VALUES (@vehicle_id, @user_id)
		ON CONFLICT (vehicle_id, user_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID, "user_id": userID}); err != nil {
		return fmt.Errorf("repo.VehicleRepo.Share: %w", err)
	}
	return nil
}

func (r *pgVehicleRepo) Unshare(ctx context.Context, vehicleID, userID uuid.UUID) error {
	const q = `DELETE FROM vehicle_shares WHERE vehicle_id = @vehicle_id AND user_id = @user_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("repo.VehicleRepo.Unshare: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.VehicleRepo.Unshare: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgVehicleRepo) HasAccess(ctx context.Context, vehicleID, userID uuid.UUID) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM vehicles WHERE id = @vehicle_id AND owner_id = @user_id
			UNION ALL
			SELECT 1 FROM vehicle_shares WHERE vehicle_id = @vehicle_id AND user_id = @user_id
		)`

	var ok bool
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID, "user_id": userID}).Scan(&ok); err != nil {
		return false, fmt.Errorf("repo.VehicleRepo.HasAccess: %w", err)
	}
	return ok, nil
}

func scanVehicle(s scanner) (domain.Vehicle, error) {
	var (
		v       domain.Vehicle
		id      pgtype.UUID
		ownerID pgtype.UUID
		mode    string
	)
	err := s.Scan(&id, &ownerID, &v.LicensePlate, &v.Name, &mode, &v.InitialOdometerKm, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Vehicle{}, domain.ErrNotFound
		}
		return domain.Vehicle{}, err
	}
	v.ID = uuid.UUID(id.Bytes)
	v.OwnerID = uuid.UUID(ownerID.Bytes)
	v.TrackingMode = domain.TrackingMode(mode)
	return v, nil
}
