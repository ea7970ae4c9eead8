package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentdesk/internal/tenant"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingInProgress BookingStatus = "IN_PROGRESS"
	BookingCompleted  BookingStatus = "COMPLETED"
	BookingCancelled  BookingStatus = "CANCELLED"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// Booking reserves an item for a customer over the half-open interval
// [StartDate, EndDate).
type Booking struct {
	ID         uint64          `db:"id" json:"id"`                   // primary key
	TenantID   tenant.ID       `db:"tenant_id" json:"-"`             // owning tenant
	ItemID     uint64          `db:"item_id" json:"item_id"`         // booked item
	CustomerID uint64          `db:"customer_id" json:"customer_id"` // renter
	StartDate  Date            `db:"start_date" json:"start_date"`   // first occupied day
	EndDate    Date            `db:"end_date" json:"end_date"`       // first free day after the booking
	Status     BookingStatus   `db:"status" json:"status"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"` // quoted or negotiated total
	Deposit    decimal.Decimal `db:"deposit" json:"deposit"`
	Notes      string          `db:"notes" json:"notes"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}
