package booking

import (
	"fmt"
	"time"

	"github.com/iliyamo/rentdesk/internal/model"
)

// Range is the half-open day interval [Start, End). End is the first day
// the item is free again, so back-to-back bookings share a boundary day.
type Range struct {
	Start model.Date `json:"start_date"`
	End   model.Date `json:"end_date"`
}

// NewRange truncates both bounds to UTC calendar days.
func NewRange(start, end time.Time) Range {
	return Range{Start: model.DateOf(start), End: model.DateOf(end)}
}

// RangeOf returns the interval a booking occupies.
func RangeOf(b model.Booking) Range { return Range{Start: b.StartDate, End: b.EndDate} }

// Validate rejects unset bounds and intervals that do not move forward.
func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidRange)
	}
	if !r.End.After(r.Start.Time) {
		return fmt.Errorf("%w: end %s must be after start %s", ErrInvalidRange, r.End, r.Start)
	}
	return nil
}

// Overlaps is the strict half-open overlap test.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End.Time) && r.End.After(o.Start.Time)
}
