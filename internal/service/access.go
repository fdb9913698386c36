package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/repo"
)

// authorize loads the vehicle and checks that userID owns it or has it shared.
// Returns domain.ErrNotFound or domain.ErrForbidden.
func authorize(ctx context.Context, vehicles repo.VehicleRepo, vehicleID, userID uuid.UUID) (domain.Vehicle, error) {
	v, err := vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return domain.Vehicle{}, err
	}
	if v.OwnerID == userID {
		return v, nil
	}
	ok, err := vehicles.HasAccess(ctx, vehicleID, userID)
	if err != nil {
		return domain.Vehicle{}, err
	}
	if !ok {
		return domain.Vehicle{}, fmt.Errorf("%w: no access to vehicle", domain.ErrForbidden)
	}
	return v, nil
}

// authorizeOwner is authorize restricted to the vehicle owner.
func authorizeOwner(ctx context.Context, vehicles repo.VehicleRepo, vehicleID, userID uuid.UUID) (domain.Vehicle, error) {
	v, err := vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return domain.Vehicle{}, err
	}
	if v.OwnerID != userID {
		return domain.Vehicle{}, fmt.Errorf("%w: only the owner can do this", domain.ErrForbidden)
	}
	return v, nil
}
