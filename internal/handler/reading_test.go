package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/handler"
	"github.com/pkordes/ritlog/internal/odometer"
	"github.com/pkordes/ritlog/internal/service"
)

func readingServer(m *mockReadingServicer) *handler.Server {
	return handler.NewServer(nil, m, nil, nil)
}

func TestCreateReading_201(t *testing.T) {
	vehicleID := uuid.New()
	ts := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	var got service.CreateReadingInput
	srv := readingServer(&mockReadingServicer{
		create: func(_ context.Context, in service.CreateReadingInput) (domain.OdometerReading, error) {
			got = in
			return domain.OdometerReading{ID: uuid.New(), VehicleID: in.VehicleID, Timestamp: in.Timestamp,
				OdometerKm: in.OdometerKm, Kind: domain.KindMeterstand}, nil
		},
	})

	rec := serve(t, srv, http.MethodPost, "/vehicles/"+vehicleID.String()+"/readings", map[string]any{
		"timestamp":   ts,
		"odometer_km": 0,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, vehicleID, got.VehicleID)
	assert.Equal(t, callerID, got.UserID)
	assert.True(t, ts.Equal(got.Timestamp))
	resp := decode[handler.Reading](t, rec)
	assert.Equal(t, domain.KindMeterstand, resp.Kind)
}

func TestCreateReading_422_MissingOdometer(t *testing.T) {
	srv := readingServer(&mockReadingServicer{})

	rec := serve(t, srv, http.MethodPost, "/vehicles/"+uuid.NewString()+"/readings",
		map[string]any{"timestamp": time.Now()})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "odometer_km is required", decode[handler.ErrorResponse](t, rec).Error.Message)
}

func TestCreateReading_422_Chronology(t *testing.T) {
	chronoErr := &odometer.ChronologyError{Kind: odometer.BelowPrior, NeighborKm: 5000}
	srv := readingServer(&mockReadingServicer{
		create: func(context.Context, service.CreateReadingInput) (domain.OdometerReading, error) {
			return domain.OdometerReading{}, chronoErr
		},
	})

	rec := serve(t, srv, http.MethodPost, "/vehicles/"+uuid.NewString()+"/readings",
		map[string]any{"timestamp": time.Now(), "odometer_km": 4999})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, chronoErr.Message(), decode[handler.ErrorResponse](t, rec).Error.Message)
}

func TestListReadings_200(t *testing.T) {
	vehicleID := uuid.New()
	srv := readingServer(&mockReadingServicer{
		list: func(_ context.Context, id, _ uuid.UUID) ([]domain.OdometerReading, error) {
			assert.Equal(t, vehicleID, id)
			return []domain.OdometerReading{
				{ID: uuid.New(), OdometerKm: 1000, Kind: domain.KindMeterstand},
				{ID: uuid.New(), OdometerKm: 2000, Kind: domain.KindMeterstand},
			}, nil
		},
	})

	rec := serve(t, srv, http.MethodGet, "/vehicles/"+vehicleID.String()+"/readings", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[[]handler.Reading](t, rec)
	require.Len(t, resp, 2)
	assert.InDelta(t, 2000, resp[1].OdometerKm, 0)
}

func TestDeleteReading_404(t *testing.T) {
	srv := readingServer(&mockReadingServicer{
		delete: func(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error { return domain.ErrNotFound },
	})

	rec := serve(t, srv, http.MethodDelete, "/vehicles/"+uuid.NewString()+"/readings/"+uuid.NewString(), nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "reading not found", decode[handler.ErrorResponse](t, rec).Error.Message)
}
