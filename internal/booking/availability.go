package booking

import (
	"context"

	"github.com/iliyamo/rentdesk/internal/database"
	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/repository"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

// Resolver answers whether an item is free over an interval. A booking
// blocks its interval in every status but CANCELLED.
type Resolver struct {
	items    *repository.ItemRepo
	bookings *repository.BookingRepo
}

func NewResolver(items *repository.ItemRepo, bookings *repository.BookingRepo) *Resolver {
	return &Resolver{items: items, bookings: bookings}
}

// Conflicts returns the bookings of itemID overlapping r, ignoring
// excludeID (0 ignores nothing). An empty result means the item is free.
// Run it on the writer's transaction to make the answer authoritative.
func (res *Resolver) Conflicts(ctx context.Context, q database.Querier, tid tenant.ID, itemID uint64, r Range, excludeID uint64) ([]model.Booking, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return res.bookings.Overlapping(ctx, q, tid, itemID, r.Start, r.End, excludeID)
}

// Availability is an advisory snapshot; only Reserve decides.
type Availability struct {
	ItemID    uint64          `json:"item_id"`
	Range     Range           `json:"range"`
	Available bool            `json:"available"`
	Conflicts []model.Booking `json:"conflicts"`
}

// Check reports availability of an item of tid outside any transaction.
func (res *Resolver) Check(ctx context.Context, tid tenant.ID, itemID uint64, r Range) (*Availability, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if _, err := res.items.Get(ctx, tid, itemID); err != nil {
		return nil, err
	}
	conflicts, err := res.Conflicts(ctx, res.bookings.DB(), tid, itemID, r, 0)
	if err != nil {
		return nil, err
	}
	return &Availability{ItemID: itemID, Range: r, Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}
