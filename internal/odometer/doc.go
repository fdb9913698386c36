// Package odometer holds the pure calculations behind trip registration:
// linear interpolation of odometer values from periodic meterstand readings,
// chronological consistency checks against a vehicle's trip history, gap
// diagnostics and milestone detection.
//
// Nothing here performs I/O. Callers load the vehicle's history from the
// record store, call into this package, and persist the outcome.
package odometer
