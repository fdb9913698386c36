package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/repo"
)

// ReportService builds mileage reports for the tax authority: every trip in
// a period with totals per purpose.
type ReportService struct {
	vehicles repo.VehicleRepo
	trips    repo.TripRepo
	loc      *time.Location
}

// NewReportService constructs a ReportService. Dates and times in report rows
// are rendered in loc; nil means UTC.
func NewReportService(vehicles repo.VehicleRepo, trips repo.TripRepo, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{vehicles: vehicles, trips: trips, loc: loc}
}

// Location is the zone report dates are rendered in. Callers use it to turn
// calendar dates into period bounds.
func (s *ReportService) Location() *time.Location {
	return s.loc
}

// Generate returns the report for trips with from <= time < to.
func (s *ReportService) Generate(ctx context.Context, vehicleID, userID uuid.UUID, from, to time.Time) (domain.Report, error) {
	if !from.Before(to) {
		return domain.Report{}, fmt.Errorf("%w: report period must end after it starts", domain.ErrValidation)
	}

	var (
		vehicle domain.Vehicle
		trips   []domain.Trip
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vehicle, err = authorize(gctx, s.vehicles, vehicleID, userID)
		return err
	})
	g.Go(func() error {
		var err error
		trips, err = s.trips.ListByVehicleBetween(gctx, vehicleID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Report{}, fmt.Errorf("service.ReportService.Generate: %w", err)
	}

	report := domain.Report{Vehicle: vehicle, From: from, To: to, Rows: make([]domain.ReportRow, 0, len(trips))}
	privatePerYear := make(map[int]float64)
	for _, t := range trips {
		local := t.Timestamp.In(s.loc)
		report.Rows = append(report.Rows, domain.ReportRow{
			TripID:          t.ID,
			Date:            local.Format(time.DateOnly),
			Time:            local.Format("15:04"),
			Purpose:         t.Purpose,
			StartAddress:    t.StartAddress,
			EndAddress:      t.EndAddress,
			StartOdometerKm: t.StartOdometerKm,
			EndOdometerKm:   t.EndOdometerKm,
			DistanceKm:      t.DistanceKm,
			Calculated:      t.OdometerCalculated,
			Notes:           t.Notes,
		})

		tot := &report.Totals
		tot.Trips++
		if t.OdometerCalculated {
			tot.CalculatedTrips++
		}
		km, ok := tripDistance(t)
		if !ok {
			tot.IncompleteTrips++
			continue
		}
		tot.TotalKm += km
		switch t.Purpose {
		case domain.PurposeBusiness:
			tot.BusinessKm += km
		case domain.PurposePrivate:
			tot.PrivateKm += km
			privatePerYear[local.Year()] += km
		case domain.PurposeCommute:
			tot.CommuteKm += km
		}
	}
	for _, km := range privatePerYear {
		if km > domain.PrivateKmAnnualLimit {
			report.Totals.PrivateLimitExceeded = true
		}
	}
	return report, nil
}

// tripDistance prefers the recorded distance and falls back to the odometer
// difference. ok is false for trips without either.
func tripDistance(t domain.Trip) (km float64, ok bool) {
	if t.DistanceKm != nil {
		return *t.DistanceKm, true
	}
	if t.EndOdometerKm != nil {
		return *t.EndOdometerKm - t.StartOdometerKm, true
	}
	return 0, false
}
