package model

import (
	"time"

	"github.com/iliyamo/rentdesk/internal/tenant"
)

// Tenant is a rental business using the platform. Every other record
// belongs to exactly one tenant.
type Tenant struct {
	ID               tenant.ID `db:"id" json:"id"`                                 // primary key
	Name             string    `db:"name" json:"name"`                             // display name
	Subdomain        string    `db:"subdomain" json:"subdomain"`                   // unique host label, e.g. "acme"
	Currency         string    `db:"currency" json:"currency"`                     // ISO 4217 code used on invoices
	InvoicePrefix    string    `db:"invoice_prefix" json:"invoice_prefix"`         // prefix of invoice numbers
	PaymentTermsDays int       `db:"payment_terms_days" json:"payment_terms_days"` // days between issue and due date
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
