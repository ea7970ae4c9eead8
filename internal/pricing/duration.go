package pricing

import (
	"errors"
	"time"
)

// ErrInvalidDuration is returned for empty or negative rental periods.
var ErrInvalidDuration = errors.New("invalid rental duration")

const day = 24 * time.Hour

// Duration describes a rental period in the units pricing cares about.
type Duration struct {
	Days      int // whole days, rounded up
	Months    int // whole calendar months counted from the start
	ExtraDays int // days past the last whole month, rounded up
}

// DurationBetween measures the half-open period [start, end).
func DurationBetween(start, end time.Time) (Duration, error) {
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return Duration{}, ErrInvalidDuration
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()-start.Month())
	for months > 0 && start.AddDate(0, months, 0).After(end) {
		months--
	}
	return Duration{
		Days:      ceilDays(end.Sub(start)),
		Months:    months,
		ExtraDays: ceilDays(end.Sub(start.AddDate(0, months, 0))),
	}, nil
}

func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	n := int(d / day)
	if d%day != 0 {
		n++
	}
	return n
}
