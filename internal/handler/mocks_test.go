package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/handler"
	"github.com/pkordes/ritlog/internal/middleware"
	"github.com/pkordes/ritlog/internal/service"
)

// ---- mocks -----------------------------------------------------------------
// Set only the method fields your test needs.

type mockVehicleServicer struct {
	create             func(ctx context.Context, in service.CreateVehicleInput) (domain.Vehicle, error)
	get                func(ctx context.Context, id, userID uuid.UUID) (domain.Vehicle, error)
	listForUser        func(ctx context.Context, userID uuid.UUID) ([]domain.Vehicle, error)
	updateTrackingMode func(ctx context.Context, id, userID uuid.UUID, mode domain.TrackingMode) (domain.Vehicle, error)
	share              func(ctx context.Context, id, ownerID, withUserID uuid.UUID) error
	unshare            func(ctx context.Context, id, ownerID, withUserID uuid.UUID) error
	delete             func(ctx context.Context, id, ownerID uuid.UUID) error
}

func (m *mockVehicleServicer) Create(ctx context.Context, in service.CreateVehicleInput) (domain.Vehicle, error) {
	return m.create(ctx, in)
}
func (m *mockVehicleServicer) Get(ctx context.Context, id, userID uuid.UUID) (domain.Vehicle, error) {
	return m.get(ctx, id, userID)
}
func (m *mockVehicleServicer) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Vehicle, error) {
	return m.listForUser(ctx, userID)
}
func (m *mockVehicleServicer) UpdateTrackingMode(ctx context.Context, id, userID uuid.UUID, mode domain.TrackingMode) (domain.Vehicle, error) {
	return m.updateTrackingMode(ctx, id, userID, mode)
}
func (m *mockVehicleServicer) Share(ctx context.Context, id, ownerID, withUserID uuid.UUID) error {
	return m.share(ctx, id, ownerID, withUserID)
}
func (m *mockVehicleServicer) Unshare(ctx context.Context, id, ownerID, withUserID uuid.UUID) error {
	return m.unshare(ctx, id, ownerID, withUserID)
}
func (m *mockVehicleServicer) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	return m.delete(ctx, id, ownerID)
}

type mockReadingServicer struct {
	create func(ctx context.Context, in service.CreateReadingInput) (domain.OdometerReading, error)
	list   func(ctx context.Context, vehicleID, userID uuid.UUID) ([]domain.OdometerReading, error)
	delete func(ctx context.Context, vehicleID, readingID, userID uuid.UUID) error
}

func (m *mockReadingServicer) Create(ctx context.Context, in service.CreateReadingInput) (domain.OdometerReading, error) {
	return m.create(ctx, in)
}
func (m *mockReadingServicer) List(ctx context.Context, vehicleID, userID uuid.UUID) ([]domain.OdometerReading, error) {
	return m.list(ctx, vehicleID, userID)
}
func (m *mockReadingServicer) Delete(ctx context.Context, vehicleID, readingID, userID uuid.UUID) error {
	return m.delete(ctx, vehicleID, readingID, userID)
}

type mockTripServicer struct {
	create   func(ctx context.Context, in service.CreateTripInput) (domain.Trip, error)
	complete func(ctx context.Context, tripID, userID uuid.UUID, endKm float64) (domain.Trip, error)
	getByID  func(ctx context.Context, id, userID uuid.UUID) (domain.Trip, error)
	list     func(ctx context.Context, vehicleID, userID uuid.UUID, p domain.PaginationParams) (domain.Page[domain.Trip], error)
	update   func(ctx context.Context, in service.UpdateTripInput) (domain.Trip, error)
	delete   func(ctx context.Context, id, userID uuid.UUID) error
}

func (m *mockTripServicer) Create(ctx context.Context, in service.CreateTripInput) (domain.Trip, error) {
	return m.create(ctx, in)
}
func (m *mockTripServicer) Complete(ctx context.Context, tripID, userID uuid.UUID, endKm float64) (domain.Trip, error) {
	return m.complete(ctx, tripID, userID, endKm)
}
func (m *mockTripServicer) GetByID(ctx context.Context, id, userID uuid.UUID) (domain.Trip, error) {
	return m.getByID(ctx, id, userID)
}
func (m *mockTripServicer) ListByVehicle(ctx context.Context, vehicleID, userID uuid.UUID, p domain.PaginationParams) (domain.Page[domain.Trip], error) {
	return m.list(ctx, vehicleID, userID, p)
}
func (m *mockTripServicer) Update(ctx context.Context, in service.UpdateTripInput) (domain.Trip, error) {
	return m.update(ctx, in)
}
func (m *mockTripServicer) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return m.delete(ctx, id, userID)
}

type mockReportServicer struct {
	generate func(ctx context.Context, vehicleID, userID uuid.UUID, from, to time.Time) (domain.Report, error)
	loc      *time.Location
}

func (m *mockReportServicer) Generate(ctx context.Context, vehicleID, userID uuid.UUID, from, to time.Time) (domain.Report, error) {
	return m.generate(ctx, vehicleID, userID, from, to)
}
func (m *mockReportServicer) Location() *time.Location {
	if m.loc == nil {
		return time.UTC
	}
	return m.loc
}

// compile-time checks: the mocks must satisfy the handler interfaces.
var (
	_ handler.VehicleServicer = (*mockVehicleServicer)(nil)
	_ handler.ReadingServicer = (*mockReadingServicer)(nil)
	_ handler.TripServicer    = (*mockTripServicer)(nil)
	_ handler.ReportServicer  = (*mockReportServicer)(nil)
)

// ---- helpers ---------------------------------------------------------------

var callerID = uuid.MustParse("6f1c2b8e-0f57-4c4e-9d8b-1a2b3c4d5e6f")

// serve sends a request as callerID through the full route tree.
func serve(t *testing.T, srv *handler.Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.UserIDHeader, callerID.String())
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func ptr[T any](v T) *T { return &v }

func vehicleFixture() domain.Vehicle {
	return domain.Vehicle{
		ID:           uuid.New(),
		OwnerID:      callerID,
		LicensePlate: "GBX12K",
		Name:         "Lease Škoda",
		TrackingMode: domain.TrackingManual,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func tripFixture() domain.Trip {
	return domain.Trip{
		ID:              uuid.New(),
		VehicleID:       uuid.New(),
		UserID:          callerID,
		Timestamp:       time.Date(2025, 3, 3, 8, 15, 0, 0, time.UTC),
		StartOdometerKm: 12000,
		Purpose:         domain.PurposeBusiness,
		DistanceSource:  domain.DistanceProvided,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
}
