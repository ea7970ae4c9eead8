package model

import (
	"time"

	"github.com/iliyamo/rentdesk/internal/tenant"
)

// Customer is a renter known to a tenant. NaturalKey (for example a
// national id or licence number) is unique within the tenant.
type Customer struct {
	ID         uint64    `db:"id" json:"id"`
	TenantID   tenant.ID `db:"tenant_id" json:"-"`
	NaturalKey string    `db:"natural_key" json:"natural_key"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	Phone      string    `db:"phone" json:"phone"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
