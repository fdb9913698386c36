package odometer

import (
	"fmt"
	"slices"
	"time"

	"github.com/pkordes/ritlog/internal/domain"
)

// FutureTolerance is how far ahead of the server clock a registration may be
// timestamped before it is rejected.
const FutureTolerance = 5 * time.Minute

// Kind identifies which chronology rule a proposed registration broke.
type Kind string

const (
	BelowPrior      Kind = "below_prior"
	AboveNext       Kind = "above_next"
	EndAboveNext    Kind = "end_above_next"
	EndBeforeStart  Kind = "end_before_start"
	FutureTimestamp Kind = "future_timestamp"
)

// ChronologyError is a rejected registration. NeighborKm is the odometer
// value of the registration the proposal collided with (or the proposal's own
// start for EndBeforeStart).
type ChronologyError struct {
	Kind       Kind
	NeighborKm float64
}

// Message is the user-facing explanation, suitable for rendering verbatim.
func (e *ChronologyError) Message() string {
	switch e.Kind {
	case BelowPrior:
		return fmt.Sprintf("start odometer must be higher than previous registration (%s km)", FormatKm(e.NeighborKm))
	case AboveNext:
		return fmt.Sprintf("start odometer must be lower than next registration (%s km)", FormatKm(e.NeighborKm))
	case EndAboveNext:
		return fmt.Sprintf("end odometer must be lower than next registration (%s km)", FormatKm(e.NeighborKm))
	case EndBeforeStart:
		return fmt.Sprintf("end odometer must be higher than start odometer (%s km)", FormatKm(e.NeighborKm))
	case FutureTimestamp:
		return "registration time cannot be more than 5 minutes in the future"
	}
	return string(e.Kind)
}

func (e *ChronologyError) Error() string {
	return domain.ErrValidation.Error() + ": " + e.Message()
}

// Unwrap makes every ChronologyError match domain.ErrValidation.
func (e *ChronologyError) Unwrap() error {
	return domain.ErrValidation
}

// Proposal is a trip registration awaiting validation.
type Proposal struct {
	Timestamp time.Time
	StartKm   float64
	EndKm     *float64
}

// Validate checks p against the vehicle's other trips and returns the first
// rule it breaks, in the order BelowPrior, AboveNext, EndAboveNext,
// EndBeforeStart, FutureTimestamp. history must not contain the trip being
// validated. Trips with exactly p's timestamp are neither prior nor next.
func Validate(history []domain.Trip, p Proposal, now time.Time) error {
	errs := check(history, p, now, true)
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// ValidateAll is Validate without short-circuiting: it reports every rule p
// breaks, in the same order.
func ValidateAll(history []domain.Trip, p Proposal, now time.Time) []*ChronologyError {
	return check(history, p, now, false)
}

func check(history []domain.Trip, p Proposal, now time.Time, first bool) []*ChronologyError {
	var errs []*ChronologyError
	fail := func(k Kind, km float64) bool {
		errs = append(errs, &ChronologyError{Kind: k, NeighborKm: km})
		return first
	}

	prior, next := neighbours(history, p.Timestamp)

	if prior != nil {
		if km := domain.EffectiveOdometer(*prior); p.StartKm < km && fail(BelowPrior, km) {
			return errs
		}
	}
	if next != nil {
		if p.StartKm > next.StartOdometerKm && fail(AboveNext, next.StartOdometerKm) {
			return errs
		}
		if p.EndKm != nil && *p.EndKm > next.StartOdometerKm && fail(EndAboveNext, next.StartOdometerKm) {
			return errs
		}
	}
	if p.EndKm != nil && *p.EndKm <= p.StartKm && fail(EndBeforeStart, p.StartKm) {
		return errs
	}
	if p.Timestamp.After(now.Add(FutureTolerance)) {
		fail(FutureTimestamp, 0)
	}
	return errs
}

// neighbours returns the latest trip strictly before t and the earliest trip
// strictly after t, or nil when there is none.
func neighbours(history []domain.Trip, t time.Time) (prior, next *domain.Trip) {
	sorted := slices.Clone(history)
	slices.SortStableFunc(sorted, func(a, b domain.Trip) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	for i := range sorted {
		switch {
		case sorted[i].Timestamp.Before(t):
			prior = &sorted[i]
		case sorted[i].Timestamp.After(t) && next == nil:
			next = &sorted[i]
		}
	}
	return prior, next
}

// ValidateReading checks a new meterstand reading against the vehicle's
// existing meterstand series. Readings may equal their neighbours but must
// not go below an earlier reading or above a later one. A second reading at
// an existing timestamp must carry the same value, otherwise ErrConflict.
func ValidateReading(series []domain.OdometerReading, at time.Time, km float64, now time.Time) error {
	if km < 0 {
		return fmt.Errorf("%w: odometer must not be negative", domain.ErrValidation)
	}
	var prior, next *domain.OdometerReading
	sorted := meterstanden(series)
	for i := range sorted {
		if sorted[i].Timestamp.Equal(at) && sorted[i].OdometerKm != km {
			return fmt.Errorf("%w: a reading at this time already records %s km",
				domain.ErrConflict, FormatKm(sorted[i].OdometerKm))
		}
		switch {
		case !sorted[i].Timestamp.After(at):
			prior = &sorted[i]
		case next == nil:
			next = &sorted[i]
		}
	}
	if prior != nil && km < prior.OdometerKm {
		return &ChronologyError{Kind: BelowPrior, NeighborKm: prior.OdometerKm}
	}
	if next != nil && km > next.OdometerKm {
		return &ChronologyError{Kind: AboveNext, NeighborKm: next.OdometerKm}
	}
	if at.After(now.Add(FutureTolerance)) {
		return &ChronologyError{Kind: FutureTimestamp}
	}
	return nil
}
