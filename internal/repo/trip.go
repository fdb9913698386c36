package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/ritlog/internal/domain"
)

// TripRepo defines the persistence operations for trip registrations.
// The service layer depends on this interface, not the Postgres implementation.
type TripRepo interface {
	// Create inserts a new trip and returns the persisted record.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// ListByVehicle returns every trip of a vehicle ordered by time ascending.
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.Trip, error)

	// ListByVehiclePaged returns one page of trips, newest first, and the total count.
	ListByVehiclePaged(ctx context.Context, vehicleID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, int64, error)

	// ListByVehicleBetween returns trips with from <= time < to, ascending.
	ListByVehicleBetween(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]domain.Trip, error)

	// ListRecent returns the n most recent trips of a vehicle, newest first.
	ListRecent(ctx context.Context, vehicleID uuid.UUID, n int) ([]domain.Trip, error)

	// ListIncompleteCalculated returns calculated trips without an end odometer
	// that took place before the given time, ascending.
	ListIncompleteCalculated(ctx context.Context, vehicleID uuid.UUID, before time.Time) ([]domain.Trip, error)

	// Update overwrites the mutable fields of a trip and returns the updated record.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// Delete removes a trip by ID. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, vehicle_id, user_id, occurred_at, start_odometer_km, end_odometer_km,
	distance_km, distance_source, purpose, start_address, end_address, notes,
	odometer_calculated, basis, created_at, updated_at`

func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	q := `
		INSERT INTO trips (vehicle_id, user_id, occurred_at, start_odometer_km, end_odometer_km,
			distance_km, distance_source, purpose, start_address, end_address, notes,
			odometer_calculated, basis)
		VALUES (@vehicle_id, @user_id, @occurred_at, @start_odometer_km, @end_odometer_km,
			@distance_km, @distance_source, @purpose, @start_address, @end_address, @notes,
			@odometer_calculated, @basis)
		RETURNING ` + tripColumns

	args, err := tripArgs(trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE id = @id`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgTripRepo) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.Trip, error) {
	q := `SELECT ` + tripColumns + `
		FROM trips
		WHERE vehicle_id = @vehicle_id
		ORDER BY occurred_at, created_at`

	trips, err := r.list(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListByVehicle: %w", err)
	}
	return trips, nil
}

func (r *pgTripRepo) ListByVehiclePaged(ctx context.Context, vehicleID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM trips WHERE vehicle_id = @vehicle_id`,
		pgx.NamedArgs{"vehicle_id": vehicleID}).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListByVehiclePaged: count: %w", err)
	}

	q := `SELECT ` + tripColumns + `
		FROM trips
		WHERE vehicle_id = @vehicle_id
		ORDER BY occurred_at DESC, created_at DESC
		LIMIT @limit OFFSET @offset`

	trips, err := r.list(ctx, q, pgx.NamedArgs{
		"vehicle_id": vehicleID,
		"limit":      p.Limit,
		"offset":     p.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListByVehiclePaged: %w", err)
	}
	return trips, total, nil
}

func (r *pgTripRepo) ListByVehicleBetween(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]domain.Trip, error) {
	q := `SELECT ` + tripColumns + `
		FROM trips
		WHERE vehicle_id = @vehicle_id
		  AND occurred_at >= @from AND occurred_at < @to
		ORDER BY occurred_at, created_at`

	trips, err := r.list(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID, "from": from, "to": to})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListByVehicleBetween: %w", err)
	}
	return trips, nil
}

func (r *pgTripRepo) ListRecent(ctx context.Context, vehicleID uuid.UUID, n int) ([]domain.Trip, error) {
	q := `SELECT ` + tripColumns + `
		FROM trips
		WHERE vehicle_id = @vehicle_id
		ORDER BY occurred_at DESC, created_at DESC
		LIMIT @n`

	trips, err := r.list(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID, "n": n})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListRecent: %w", err)
	}
	return trips, nil
}

func (r *pgTripRepo) ListIncompleteCalculated(ctx context.Context, vehicleID uuid.UUID, before time.Time) ([]domain.Trip, error) {
	q := `SELECT ` + tripColumns + `
		FROM trips
		WHERE vehicle_id = @vehicle_id
		  AND end_odometer_km IS NULL
		  AND odometer_calculated
		  AND occurred_at < @before
		ORDER BY occurred_at`

	trips, err := r.list(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID, "before": before})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListIncompleteCalculated: %w", err)
	}
	return trips, nil
}

func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	q := `
		UPDATE trips
		SET start_odometer_km   = @start_odometer_km,
		    end_odometer_km     = @end_odometer_km,
		    distance_km         = @distance_km,
		    distance_source     = @distance_source,
		    purpose             = @purpose,
		    start_address       = @start_address,
		    end_address         = @end_address,
		    notes               = @notes,
		    odometer_calculated = @odometer_calculated,
		    basis               = @basis,
		    updated_at          = now()
		WHERE id = @id
		RETURNING ` + tripColumns

	args, err := tripArgs(trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	args["id"] = trip.ID

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM trips WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgTripRepo) list(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Trip, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTrip)
}

// tripArgs maps the writable trip columns. A nil basis becomes NULL.
func tripArgs(t domain.Trip) (pgx.NamedArgs, error) {
	var basis []byte
	if t.Basis != nil {
		b, err := json.Marshal(t.Basis)
		if err != nil {
			return nil, fmt.Errorf("marshal basis: %w", err)
		}
		basis = b
	}
	return pgx.NamedArgs{
		"vehicle_id":          t.VehicleID,
		"user_id":             t.UserID,
		"occurred_at":         t.Timestamp,
		"start_odometer_km":   t.StartOdometerKm,
		"end_odometer_km":     t.EndOdometerKm,
		"distance_km":         t.DistanceKm,
		"distance_source":     string(t.DistanceSource),
		"purpose":             string(t.Purpose),
		"start_address":       t.StartAddress,
		"end_address":         t.EndAddress,
		"notes":               t.Notes,
		"odometer_calculated": t.OdometerCalculated,
		"basis":               basis,
	}, nil
}

// scanTrip maps a single database row into a domain.Trip, handling UUIDs,
// nullable odometer columns and the JSONB interpolation basis.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t         domain.Trip
		id        pgtype.UUID
		vehicleID pgtype.UUID
		userID    pgtype.UUID
		endKm     pgtype.Float8
		distance  pgtype.Float8
		source    string
		purpose   string
		basis     []byte
	)

	err := s.Scan(&id, &vehicleID, &userID, &t.Timestamp, &t.StartOdometerKm, &endKm,
		&distance, &source, &purpose, &t.StartAddress, &t.EndAddress, &t.Notes,
		&t.OdometerCalculated, &basis, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.VehicleID = uuid.UUID(vehicleID.Bytes)
	t.UserID = uuid.UUID(userID.Bytes)
	t.DistanceSource = domain.DistanceSource(source)
	t.Purpose = domain.Purpose(purpose)
	if endKm.Valid {
		v := endKm.Float64
		t.EndOdometerKm = &v
	}
	if distance.Valid {
		v := distance.Float64
		t.DistanceKm = &v
	}
	if len(basis) > 0 {
		var b domain.InterpolationBasis
		if err := json.Unmarshal(basis, &b); err != nil {
			return domain.Trip{}, fmt.Errorf("unmarshal basis: %w", err)
		}
		t.Basis = &b
	}
	return t, nil
}
