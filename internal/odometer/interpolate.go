package odometer

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/pkordes/ritlog/internal/domain"
)

// Result is the calculated odometer pair for a trip at a target time.
// EndKm is set only when a distance is known and no later reading bounds the trip.
type Result struct {
	StartKm float64
	EndKm   *float64
	Basis   domain.InterpolationBasis
}

// Interpolate computes the start (and possibly end) odometer of a trip at
// target from the vehicle's meterstand readings. Readings of other kinds are
// ignored. distanceKm is an optional measured or routed distance.
//
// With readings on both sides of target the start is interpolated linearly
// between them and the end is left open; distanceKm is not used. With only an
// earlier reading the trip starts at that reading and ends distanceKm later.
// Without an earlier reading ErrNoPriorReading is returned.
func Interpolate(readings []domain.OdometerReading, target time.Time, distanceKm *float64) (Result, error) {
	if distanceKm != nil && (*distanceKm < 0 || math.IsNaN(*distanceKm)) {
		return Result{}, fmt.Errorf("%w: distance must not be negative", domain.ErrValidation)
	}

	series := meterstanden(readings)

	// First reading strictly after target; everything before it is at or before target.
	i := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp.After(target)
	})
	if i == 0 {
		return Result{}, domain.ErrNoPriorReading
	}

	prev := series[i-1]
	for j := i - 2; j >= 0 && series[j].Timestamp.Equal(prev.Timestamp); j-- {
		if series[j].OdometerKm != prev.OdometerKm {
			return Result{}, domain.ErrAmbiguousBasis
		}
	}

	res := Result{
		StartKm: prev.OdometerKm,
		Basis: domain.InterpolationBasis{
			PreviousReadingID: prev.ID,
			Method:            domain.InterpolationMethodLinear,
		},
	}

	if i == len(series) {
		if distanceKm != nil {
			end := res.StartKm + *distanceKm
			res.EndKm = &end
		}
		return res, nil
	}

	next := series[i]
	span := next.Timestamp.Sub(prev.Timestamp)
	if span <= 0 || next.OdometerKm < prev.OdometerKm {
		return Result{}, domain.ErrAmbiguousBasis
	}

	fraction := float64(target.Sub(prev.Timestamp)) / float64(span)
	res.StartKm = min(prev.OdometerKm+(next.OdometerKm-prev.OdometerKm)*fraction, next.OdometerKm)

	nextID := next.ID
	res.Basis.NextReadingID = &nextID
	return res, nil
}

// meterstanden returns the meterstand readings of rs sorted by timestamp.
// The sort is stable so readings sharing a timestamp keep their input order.
func meterstanden(rs []domain.OdometerReading) []domain.OdometerReading {
	out := make([]domain.OdometerReading, 0, len(rs))
	for _, r := range rs {
		if r.Kind == domain.KindMeterstand {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.OdometerReading) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}
