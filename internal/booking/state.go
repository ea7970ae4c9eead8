package booking

import "github.com/iliyamo/rentdesk/internal/model"

// transitions is the booking lifecycle. COMPLETED and CANCELLED are final.
var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.BookingPending:    {model.BookingConfirmed, model.BookingCancelled},
	model.BookingConfirmed:  {model.BookingInProgress, model.BookingCancelled},
	model.BookingInProgress: {model.BookingCompleted, model.BookingCancelled},
}

// CanTransition reports whether a booking may move from one status to
// another.
func CanTransition(from, to model.BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
