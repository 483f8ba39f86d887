package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateCheckIn signals a check-in already recorded for that local
	// date. Not a failure: callers treat it as an idempotent no-op.
	ErrDuplicateCheckIn = errors.New("duplicate check-in")
	// ErrNonMonotonicCheckIn signals a check-in dated before the last one.
	ErrNonMonotonicCheckIn = errors.New("non-monotonic check-in")
	// ErrInvalidTimezone signals an unknown IANA timezone identifier.
	ErrInvalidTimezone = errors.New("invalid timezone")
)
