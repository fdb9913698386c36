package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/repo"
	"github.com/pkordes/ritlog/testutil"
)

func tripFixture(vehicleID uuid.UUID, ts time.Time, start float64) domain.Trip {
	return domain.Trip{
		VehicleID:       vehicleID,
		UserID:          uuid.New(),
		Timestamp:       ts,
		StartOdometerKm: start,
		Purpose:         domain.PurposeBusiness,
		StartAddress:    "Stationsplein 1, Utrecht",
		EndAddress:      "Damrak 1, Amsterdam",
	}
}

func TestTripRepo_Create(t *testing.T) {
	tx := testutil.NewTx(t)
	r := repo.NewTripRepo(tx)
	ctx := context.Background()
	v := seedVehicle(t, tx, "TR001A")

	in := tripFixture(v.ID, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), 1500)
	end, dist := 1550.0, 50.0
	nextID := uuid.New()
	in.EndOdometerKm = &end
	in.DistanceKm = &dist
	in.DistanceSource = domain.DistanceProvided
	in.OdometerCalculated = true
	in.Basis = &domain.InterpolationBasis{PreviousReadingID: uuid.New(), NextReadingID: &nextID, Method: "linear"}

	got, err := r.Create(ctx, in)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got.ID, "ID should be DB-generated")
	assert.Equal(t, 1500.0, got.StartOdometerKm)
	require.NotNil(t, got.EndOdometerKm)
	assert.Equal(t, 1550.0, *got.EndOdometerKm)
	require.NotNil(t, got.Basis)
	assert.Equal(t, in.Basis.PreviousReadingID, got.Basis.PreviousReadingID)
	require.NotNil(t, got.Basis.NextReadingID)
	assert.Equal(t, nextID, *got.Basis.NextReadingID)
	assert.True(t, got.OdometerCalculated)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestTripRepo_Create_Incomplete(t *testing.T) {
	tx := testutil.NewTx(t)
	v := seedVehicle(t, tx, "TR002B")

	got, err := repo.NewTripRepo(tx).Create(context.Background(), tripFixture(v.ID, time.Now().UTC(), 10))

	require.NoError(t, err)
	assert.Nil(t, got.EndOdometerKm)
	assert.Nil(t, got.DistanceKm)
	assert.Nil(t, got.Basis)
}

func TestTripRepo_GetByID_NotFound(t *testing.T) {
	_, err := repo.NewTripRepo(testutil.NewTx(t)).GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTripRepo_Listings(t *testing.T) {
	tx := testutil.NewTx(t)
	r := repo.NewTripRepo(tx)
	ctx := context.Background()
	v := seedVehicle(t, tx, "TR003C")

	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		trip := tripFixture(v.ID, base.AddDate(0, 0, i), float64(1000+i*100))
		if i == 4 {
			trip.OdometerCalculated = true
		}
		_, err := r.Create(ctx, trip)
		require.NoError(t, err)
	}

	all, err := r.ListByVehicle(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, 1000.0, all[0].StartOdometerKm)

	recent, err := r.ListRecent(ctx, v.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 1400.0, recent[0].StartOdometerKm, "newest first")

	page, total, err := r.ListByVehiclePaged(ctx, v.ID, domain.PaginationParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, 1200.0, page[0].StartOdometerKm)

	between, err := r.ListByVehicleBetween(ctx, v.ID, base.AddDate(0, 0, 1), base.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Len(t, between, 2)

	incomplete, err := r.ListIncompleteCalculated(ctx, v.ID, base.AddDate(1, 0, 0))
	require.NoError(t, err)
	require.Len(t, incomplete, 1)
	assert.Equal(t, 1400.0, incomplete[0].StartOdometerKm)
}

func TestTripRepo_UpdateAndDelete(t *testing.T) {
	tx := testutil.NewTx(t)
	r := repo.NewTripRepo(tx)
	ctx := context.Background()
	v := seedVehicle(t, tx, "TR004D")

	created, err := r.Create(ctx, tripFixture(v.ID, time.Now().UTC(), 10))
	require.NoError(t, err)

	end := 42.0
	created.EndOdometerKm = &end
	created.Purpose = domain.PurposePrivate

	updated, err := r.Update(ctx, created)
	require.NoError(t, err)
	require.NotNil(t, updated.EndOdometerKm)
	assert.Equal(t, 42.0, *updated.EndOdometerKm)
	assert.Equal(t, domain.PurposePrivate, updated.Purpose)

	require.NoError(t, r.Delete(ctx, created.ID))
	assert.ErrorIs(t, r.Delete(ctx, created.ID), domain.ErrNotFound)
}
