package odometer

import (
	"time"

	"github.com/pkordes/ritlog/internal/domain"
)

// GapToleranceKm absorbs rounding between consecutive registrations.
const GapToleranceKm = 1.0

// Gap describes unregistered kilometres between the previous registration and
// a new start odometer.
type Gap struct {
	Km       float64
	Severity domain.GapSeverity
	Detected bool
}

// ComputeGap compares the prior effective odometer with a new start value.
// Gaps within GapToleranceKm (or negative ones, which the chronology check
// handles) are not detected.
func ComputeGap(priorKm, newStartKm float64) Gap {
	g := Gap{Km: newStartKm - priorKm}
	if g.Km <= GapToleranceKm {
		return g
	}
	g.Detected = true
	switch {
	case g.Km > 50:
		g.Severity = domain.SeverityUrgent
	case g.Km > 20:
		g.Severity = domain.SeverityHigh
	case g.Km > 5:
		g.Severity = domain.SeverityMedium
	default:
		g.Severity = domain.SeverityNormal
	}
	return g
}

// PriorOdometer returns the effective odometer of the latest trip in history
// strictly before t, the value ComputeGap is measured from.
func PriorOdometer(history []domain.Trip, t time.Time) (float64, bool) {
	prior, _ := neighbours(history, t)
	if prior == nil {
		return 0, false
	}
	return domain.EffectiveOdometer(*prior), true
}
