// Package clock converts UTC instants to a user's local calendar date with a
// fixed early-morning day boundary: a check-in before the cutoff hour counts
// for the previous day.
package clock

import (
	"fmt"
	"time"

	pkgerrors "github.com/mverrett/ascend-backend/internal/pkg/errors"
)

const DefaultCutoffHour = 3

// LocalDateOf returns the local calendar date of instant in tz, shifted back
// one day when the local wall clock is before cutoffHour. The result is
// normalized to UTC midnight. Pure; safe for concurrent use.
func LocalDateOf(instant time.Time, tz string, cutoffHour int) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", pkgerrors.ErrInvalidTimezone, tz)
	}
	local := instant.In(loc)
	y, m, d := local.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if local.Hour() < cutoffHour {
		// Date arithmetic, not 24h subtraction: AddDate stays correct across
		// DST transitions and fractional-hour offsets.
		date = date.AddDate(0, 0, -1)
	}
	return date, nil
}

// LocalDateOrDefault resolves tz, falling back to fallbackTZ when tz is
// unknown. fallbackTZ is trusted configuration; a bad value panics at startup
// rather than mid-scan.
func LocalDateOrDefault(instant time.Time, tz, fallbackTZ string, cutoffHour int) time.Time {
	date, err := LocalDateOf(instant, tz, cutoffHour)
	if err == nil {
		return date
	}
	date, err = LocalDateOf(instant, fallbackTZ, cutoffHour)
	if err != nil {
		panic(fmt.Sprintf("invalid fallback timezone %q", fallbackTZ))
	}
	return date
}
