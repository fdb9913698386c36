package odometer_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/odometer"
)

func TestDetectMilestones_MultiCrossing(t *testing.T) {
	got := odometer.DetectMilestones(ptr(9000), 30000)

	assert.Equal(t, []float64{10000, 25000}, got)
}

func TestDetectMilestones_FirstReading(t *testing.T) {
	assert.Empty(t, odometer.DetectMilestones(nil, 15000))
}

func TestDetectMilestones_Boundaries(t *testing.T) {
	assert.Equal(t, []float64{10000}, odometer.DetectMilestones(ptr(9999), 10000), "landing exactly on a milestone counts")
	assert.Empty(t, odometer.DetectMilestones(ptr(10000), 12000), "already at the milestone")
	assert.Empty(t, odometer.DetectMilestones(ptr(11000), 11500))
}

func TestPreviousHighest(t *testing.T) {
	newTrip := trip(at(500), 24990, ptr(25010))
	recent := []domain.Trip{
		newTrip,
		trip(at(400), 24900, ptr(24950)),
		trip(at(300), 24800, ptr(24900)),
	}

	got := odometer.PreviousHighest(recent, 25010, newTrip.ID)

	require.NotNil(t, got)
	assert.Equal(t, 24950.0, *got)
}

func TestPreviousHighest_NoneBelow(t *testing.T) {
	recent := []domain.Trip{trip(at(400), 30000, nil)}

	assert.Nil(t, odometer.PreviousHighest(recent, 25000, uuid.Nil))
	assert.Nil(t, odometer.PreviousHighest(nil, 25000, uuid.Nil))
}

func TestPreviousHighest_WindowLimit(t *testing.T) {
	var recent []domain.Trip
	for i := 0; i < odometer.RecentTripWindow; i++ {
		recent = append(recent, trip(at(int64(1000-i)), 50000, nil))
	}
	recent = append(recent, trip(at(1), 100, nil)) // outside the window

	assert.Nil(t, odometer.PreviousHighest(recent, 40000, uuid.Nil))
}
