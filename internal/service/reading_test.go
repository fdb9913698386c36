package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/odometer"
	"github.com/pkordes/ritlog/internal/service"
)

func newReadingService(v domain.Vehicle, readings *mockReadingRepo, trips *mockTripRepo) *service.ReadingService {
	return service.NewReadingService(vehicleRepoFor(v), readings, trips, &countingLocker{}, discardLogger()).
		WithClock(fixedNow)
}

func echoReadings(existing ...domain.OdometerReading) *mockReadingRepo {
	r := readingsOf(existing...)
	r.create = func(_ context.Context, rd domain.OdometerReading) (domain.OdometerReading, error) {
		rd.ID = uuid.New()
		return rd, nil
	}
	return r
}

func noPendingTrips() *mockTripRepo {
	return &mockTripRepo{
		listIncompleteCalculated: func(context.Context, uuid.UUID, time.Time) ([]domain.Trip, error) { return nil, nil },
	}
}

func TestReadingService_Create(t *testing.T) {
	v := vehicle(domain.TrackingAutoCalculate)
	svc := newReadingService(v, echoReadings(meterstand(clock.Add(-48*time.Hour), 1000)), noPendingTrips())

	got, err := svc.Create(context.Background(), service.CreateReadingInput{
		VehicleID: v.ID, UserID: ownerID, Timestamp: clock.Add(-time.Hour), OdometerKm: 1000, Notes: "APK",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.KindMeterstand, got.Kind)
	assert.Equal(t, 1000.0, got.OdometerKm, "equal to the previous reading is accepted")
}

func TestReadingService_Create_Rejections(t *testing.T) {
	v := vehicle(domain.TrackingAutoCalculate)
	t0 := clock.Add(-48 * time.Hour)
	series := []domain.OdometerReading{meterstand(t0, 1000), meterstand(t0.Add(24*time.Hour), 2000)}

	tests := []struct {
		name string
		at   time.Time
		km   float64
		kind odometer.Kind
	}{
		{"below prior", t0.Add(time.Hour), 999, odometer.BelowPrior},
		{"above next", t0.Add(time.Hour), 2001, odometer.AboveNext},
		{"future", clock.Add(time.Hour), 3000, odometer.FutureTimestamp},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newReadingService(v, echoReadings(series...), noPendingTrips())

			_, err := svc.Create(context.Background(), service.CreateReadingInput{
				VehicleID: v.ID, UserID: ownerID, Timestamp: tc.at, OdometerKm: tc.km,
			})

			var ce *odometer.ChronologyError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.kind, ce.Kind)
		})
	}
}

func TestReadingService_Create_RecalculatesPendingTrips(t *testing.T) {
	v := vehicle(domain.TrackingAutoCalculate)
	t0 := clock.Add(-48 * time.Hour)
	first := meterstand(t0, 1000)
	pending := domain.Trip{
		ID:                 uuid.New(),
		VehicleID:          v.ID,
		Timestamp:          t0.Add(12 * time.Hour),
		StartOdometerKm:    1000,
		DistanceKm:         ptr(30),
		OdometerCalculated: true,
	}
	var updated []domain.Trip
	trips := &mockTripRepo{
		listIncompleteCalculated: func(context.Context, uuid.UUID, time.Time) ([]domain.Trip, error) {
			return []domain.Trip{pending}, nil
		},
		update: func(_ context.Context, t domain.Trip) (domain.Trip, error) {
			updated = append(updated, t)
			return t, nil
		},
	}
	svc := newReadingService(v, echoReadings(first), trips)

	_, err := svc.Create(context.Background(), service.CreateReadingInput{
		VehicleID: v.ID, UserID: ownerID, Timestamp: t0.Add(24 * time.Hour), OdometerKm: 2000,
	})

	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, 1500.0, updated[0].StartOdometerKm)
	assert.Nil(t, updated[0].EndOdometerKm, "end stays open between two readings")
	require.NotNil(t, updated[0].Basis.NextReadingID)
}

func TestReadingService_Create_RecalculationFailureIsNotReturned(t *testing.T) {
	v := vehicle(domain.TrackingAutoCalculate)
	trips := &mockTripRepo{
		listIncompleteCalculated: func(context.Context, uuid.UUID, time.Time) ([]domain.Trip, error) {
			return nil, errors.New("db exploded")
		},
	}
	svc := newReadingService(v, echoReadings(), trips)

	_, err := svc.Create(context.Background(), service.CreateReadingInput{
		VehicleID: v.ID, UserID: ownerID, Timestamp: clock.Add(-time.Hour), OdometerKm: 10,
	})

	assert.NoError(t, err)
}

func TestReadingService_List_Empty(t *testing.T) {
	v := vehicle(domain.TrackingManual)
	svc := newReadingService(v, readingsOf(), nil)

	got, err := svc.List(context.Background(), v.ID, ownerID)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReadingService_Delete_Forbidden(t *testing.T) {
	v := vehicle(domain.TrackingManual)
	svc := newReadingService(v, &mockReadingRepo{}, nil)

	err := svc.Delete(context.Background(), v.ID, uuid.New(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrForbidden)
}
