package odometer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/odometer"
)

func TestComputeGap(t *testing.T) {
	tests := []struct {
		name     string
		prior    float64
		start    float64
		detected bool
		severity domain.GapSeverity
	}{
		{"within tolerance", 5000, 5000.5, false, ""},
		{"exactly tolerance", 5000, 5001, false, ""},
		{"regression", 5000, 4990, false, ""},
		{"normal", 5000, 5003, true, domain.SeverityNormal},
		{"medium", 5000, 5010, true, domain.SeverityMedium},
		{"high", 5000, 5021, true, domain.SeverityHigh},
		{"urgent", 5000, 5060, true, domain.SeverityUrgent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := odometer.ComputeGap(tc.prior, tc.start)
			assert.Equal(t, tc.detected, g.Detected)
			assert.Equal(t, tc.severity, g.Severity)
			assert.InDelta(t, tc.start-tc.prior, g.Km, 1e-9)
		})
	}
}

func TestPriorOdometer(t *testing.T) {
	t0 := now.Add(-48 * time.Hour)
	history := []domain.Trip{
		trip(t0.Add(2*time.Hour), 5100, nil),
		trip(t0, 5000, ptr(5040)),
		trip(t0.Add(5*time.Hour), 5200, nil),
	}

	km, ok := odometer.PriorOdometer(history, t0.Add(3*time.Hour))
	assert.True(t, ok)
	assert.Equal(t, 5100.0, km)

	km, ok = odometer.PriorOdometer(history, t0.Add(time.Hour))
	assert.True(t, ok)
	assert.Equal(t, 5040.0, km, "end odometer wins when present")

	_, ok = odometer.PriorOdometer(history, t0)
	assert.False(t, ok)
}
