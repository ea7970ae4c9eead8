package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/rentdesk/internal/model"
)

var (
	// ErrInvalidRange is returned for empty, inverted or unset intervals.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrConflict is returned when the interval overlaps a live booking.
	ErrConflict = errors.New("item not available for the requested dates")
	// ErrBusy is returned when the item could not be locked in time. The
	// caller may retry.
	ErrBusy = errors.New("item is busy, retry later")
	// ErrInvalidTransition is returned for a status change the booking
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid booking status transition")
	// ErrItemUnavailable is returned when booking an item that is not ACTIVE.
	ErrItemUnavailable = errors.New("item is not active")
	// ErrInvalidPrice is returned for negative prices or deposits.
	ErrInvalidPrice = errors.New("price must not be negative")
	// ErrDuplicateInvoice signals a second invoice for one booking. It is
	// a defect, never a user error.
	ErrDuplicateInvoice = errors.New("duplicate invoice for booking")
)

// ConflictError lists the bookings that block a requested interval.
type ConflictError struct {
	Conflicts []model.Booking
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return ErrConflict.Error()
	}
	parts := make([]string, 0, len(e.Conflicts))
	for _, b := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("#%d [%s, %s)", b.ID, b.StartDate, b.EndDate))
	}
	return fmt.Sprintf("%s: overlaps %s", ErrConflict, strings.Join(parts, ", "))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// TransitionError names the refused status change.
type TransitionError struct {
	From, To model.BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
