package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentdesk/internal/tenant"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

// Invoice is minted exactly once per confirmed booking.
type Invoice struct {
	ID            uint64          `db:"id" json:"id"`
	TenantID      tenant.ID       `db:"tenant_id" json:"-"`
	BookingID     uint64          `db:"booking_id" json:"booking_id"`
	Number        string          `db:"number" json:"number"` // PREFIX-YYYY-NNNN, unique per tenant
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Currency      string          `db:"currency" json:"currency"`
	IssueDate     Date            `db:"issue_date" json:"issue_date"`
	DueDate       Date            `db:"due_date" json:"due_date"`
	PaymentStatus PaymentStatus   `db:"payment_status" json:"payment_status"`
	PaidAt        *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
