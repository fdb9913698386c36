package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. unknown purpose, odometer lower than the previous trip).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrForbidden is returned when the calling user neither owns the vehicle nor
// has shared access to it. Handlers should map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a unique constraint would be violated,
// e.g. registering a licence plate that is already in the garage.
var ErrConflict = errors.New("conflict")

// ErrNoPriorReading is returned when the odometer cannot be calculated because
// the vehicle has no meterstand reading at or before the trip time.
var ErrNoPriorReading = fmt.Errorf("%w: cannot auto-calculate odometer, enter a manual reading first", ErrValidation)

// ErrAmbiguousBasis is returned when the bracketing meterstand readings do not
// define a usable interpolation (same timestamp, or decreasing values).
var ErrAmbiguousBasis = fmt.Errorf("%w: cannot auto-calculate odometer, surrounding readings are inconsistent", ErrValidation)
