package booking_test

import (
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/rentdesk/internal/booking"
	"github.com/iliyamo/rentdesk/internal/model"
)

func rng(start, end string) booking.Range {
	s, _ := model.ParseDate(start)
	e, _ := model.ParseDate(end)
	return booking.Range{Start: s, End: e}
}

func TestRangeValidate(t *testing.T) {
	if err := rng("2025-03-01", "2025-03-05").Validate(); err != nil {
		t.Fatalf("valid range rejected: %v", err)
	}
	for _, r := range []booking.Range{
		rng("2025-03-05", "2025-03-05"),
		rng("2025-03-05", "2025-03-01"),
		{Start: model.NewDate(2025, 3, 1)},
		{},
	} {
		if err := r.Validate(); !errors.Is(err, booking.ErrInvalidRange) {
			t.Errorf("%v: expected ErrInvalidRange, got %v", r, err)
		}
	}
}

func TestRangeOverlaps(t *testing.T) {
	base := rng("2025-03-01", "2025-03-05")
	cases := []struct {
		name  string
		other booking.Range
		want  bool
	}{
		{"back to back after", rng("2025-03-05", "2025-03-08"), false},
		{"back to back before", rng("2025-02-25", "2025-03-01"), false},
		{"overlap start", rng("2025-02-27", "2025-03-02"), true},
		{"overlap end", rng("2025-03-04", "2025-03-10"), true},
		{"contained", rng("2025-03-02", "2025-03-03"), true},
		{"containing", rng("2025-02-01", "2025-04-01"), true},
		{"identical", base, true},
		{"disjoint", rng("2025-04-01", "2025-04-02"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := base.Overlaps(tc.other); got != tc.want {
				t.Fatalf("Overlaps = %v, want %v", got, tc.want)
			}
			if got := tc.other.Overlaps(base); got != tc.want {
				t.Fatalf("overlap must be symmetric")
			}
		})
	}
}

func TestNewRangeTruncates(t *testing.T) {
	r := booking.NewRange(time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC), time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC))
	if r.Start.String() != "2025-03-01" || r.End.String() != "2025-03-04" {
		t.Fatalf("got %s..%s", r.Start, r.End)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]model.BookingStatus{
		{model.BookingPending, model.BookingConfirmed},
		{model.BookingConfirmed, model.BookingInProgress},
		{model.BookingInProgress, model.BookingCompleted},
		{model.BookingPending, model.BookingCancelled},
		{model.BookingConfirmed, model.BookingCancelled},
		{model.BookingInProgress, model.BookingCancelled},
	}
	for _, p := range allowed {
		if !booking.CanTransition(p[0], p[1]) {
			t.Errorf("%s -> %s should be allowed", p[0], p[1])
		}
	}
	refused := [][2]model.BookingStatus{
		{model.BookingPending, model.BookingInProgress},
		{model.BookingPending, model.BookingCompleted},
		{model.BookingCompleted, model.BookingCancelled},
		{model.BookingCancelled, model.BookingPending},
		{model.BookingConfirmed, model.BookingPending},
	}
	for _, p := range refused {
		if booking.CanTransition(p[0], p[1]) {
			t.Errorf("%s -> %s should be refused", p[0], p[1])
		}
	}
}
