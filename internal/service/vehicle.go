package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/repo"
)

// maxPlateLen is the longest normalised licence plate accepted.
const maxPlateLen = 10

// CreateVehicleInput is a new vehicle for the owner's garage.
type CreateVehicleInput struct {
	OwnerID           uuid.UUID
	LicensePlate      string
	Name              string
	TrackingMode      domain.TrackingMode
	InitialOdometerKm float64
}

// VehicleService implements the garage: vehicles, tracking mode and sharing.
// Only the owner may change, share or delete a vehicle.
type VehicleService struct {
	vehicles repo.VehicleRepo
}

// NewVehicleService constructs a VehicleService backed by the provided VehicleRepo.
func NewVehicleService(vehicles repo.VehicleRepo) *VehicleService {
	return &VehicleService{vehicles: vehicles}
}

// Create validates and persists a vehicle. The tracking mode defaults to manual.
// Returns domain.ErrConflict when the plate is already registered.
func (s *VehicleService) Create(ctx context.Context, in CreateVehicleInput) (domain.Vehicle, error) {
	plate, err := NormalizePlate(in.LicensePlate)
	if err != nil {
		return domain.Vehicle{}, err
	}
	mode := in.TrackingMode
	if mode == "" {
		mode = domain.TrackingManual
	}
	if !mode.Valid() {
		return domain.Vehicle{}, fmt.Errorf("%w: tracking mode must be manual or auto_calculate", domain.ErrValidation)
	}
	if in.InitialOdometerKm < 0 || math.IsNaN(in.InitialOdometerKm) {
		return domain.Vehicle{}, fmt.Errorf("%w: initial odometer must not be negative", domain.ErrValidation)
	}

	result, err := s.vehicles.Create(ctx, domain.Vehicle{
		OwnerID:           in.OwnerID,
		LicensePlate:      plate,
		Name:              strings.TrimSpace(in.Name),
		TrackingMode:      mode,
		InitialOdometerKm: in.InitialOdometerKm,
	})
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("service.VehicleService.Create: %w", err)
	}
	return result, nil
}

// Get returns a vehicle the user owns or has shared.
func (s *VehicleService) Get(ctx context.Context, id, userID uuid.UUID) (domain.Vehicle, error) {
	v, err := authorize(ctx, s.vehicles, id, userID)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("service.VehicleService.Get: %w", err)
	}
	return v, nil
}

// ListForUser returns owned and shared vehicles. Never nil.
func (s *VehicleService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Vehicle, error) {
	vehicles, err := s.vehicles.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.VehicleService.ListForUser: %w", err)
	}
	if vehicles == nil {
		return []domain.Vehicle{}, nil
	}
	return vehicles, nil
}

// UpdateTrackingMode switches between manual entry and auto-calculation.
// Existing trips are not touched.
func (s *VehicleService) UpdateTrackingMode(ctx context.Context, id, userID uuid.UUID, mode domain.TrackingMode) (domain.Vehicle, error) {
	if !mode.Valid() {
		return domain.Vehicle{}, fmt.Errorf("%w: tracking mode must be manual or auto_calculate", domain.ErrValidation)
	}
	if _, err := authorizeOwner(ctx, s.vehicles, id, userID); err != nil {
		return domain.Vehicle{}, fmt.Errorf("service.VehicleService.UpdateTrackingMode: %w", err)
	}
	result, err := s.vehicles.UpdateTrackingMode(ctx, id, mode)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("service.VehicleService.UpdateTrackingMode: %w", err)
	}
	return result, nil
}

// Share grants another user access to register trips on the vehicle.
func (s *VehicleService) Share(ctx context.Context, id, ownerID, withUserID uuid.UUID) error {
	if withUserID == uuid.Nil || withUserID == ownerID {
		return fmt.Errorf("%w: share target must be another user", domain.ErrValidation)
	}
	if _, err := authorizeOwner(ctx, s.vehicles, id, ownerID); err != nil {
		return fmt.Errorf("service.VehicleService.Share: %w", err)
	}
	if err := s.vehicles.Share(ctx, id, withUserID); err != nil {
		return fmt.Errorf("service.VehicleService.Share: %w", err)
	}
	return nil
}

// Unshare revokes a share.
func (s *VehicleService) Unshare(ctx context.Context, id, ownerID, withUserID uuid.UUID) error {
	if _, err := authorizeOwner(ctx, s.vehicles, id, ownerID); err != nil {
		return fmt.Errorf("service.VehicleService.Unshare: %w", err)
	}
	if err := s.vehicles.Unshare(ctx, id, withUserID); err != nil {
		return fmt.Errorf("service.VehicleService.Unshare: %w", err)
	}
	return nil
}

// Delete removes the vehicle with all its readings, trips and shares.
func (s *VehicleService) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	if _, err := authorizeOwner(ctx, s.vehicles, id, ownerID); err != nil {
		return fmt.Errorf("service.VehicleService.Delete: %w", err)
	}
	if err := s.vehicles.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.VehicleService.Delete: %w", err)
	}
	return nil
}

// NormalizePlate canonicalises a licence plate: NFC, upper case, with dashes
// and whitespace removed. "12-abc-3" becomes "12ABC3".
func NormalizePlate(raw string) (string, error) {
	var b strings.Builder
	for _, r := range norm.NFC.String(raw) {
		switch {
		case r == '-' || unicode.IsSpace(r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToUpper(r))
		default:
			return "", fmt.Errorf("%w: licence plate may only contain letters, digits and dashes", domain.ErrValidation)
		}
	}
	plate := b.String()
	if plate == "" {
		return "", fmt.Errorf("%w: licence plate is required", domain.ErrValidation)
	}
	if len([]rune(plate)) > maxPlateLen {
		return "", fmt.Errorf("%w: licence plate is too long", domain.ErrValidation)
	}
	return plate, nil
}
