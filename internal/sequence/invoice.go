package sequence

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/rentdesk/internal/model"
)

// InvoiceNumberer numbers invoices with the tenant's prefix and the year
// the booking was confirmed in.
type InvoiceNumberer struct {
	gen           *Generator
	defaultPrefix string
}

// NewInvoiceNumberer uses defaultPrefix for tenants without one.
func NewInvoiceNumberer(gen *Generator, defaultPrefix string) *InvoiceNumberer {
	if defaultPrefix == "" {
		defaultPrefix = "INV"
	}
	return &InvoiceNumberer{gen: gen, defaultPrefix: defaultPrefix}
}

func (n *InvoiceNumberer) Number(ctx context.Context, tx *sqlx.Tx, t *model.Tenant, confirmedAt time.Time) (string, error) {
	prefix := t.InvoicePrefix
	if prefix == "" {
		prefix = n.defaultPrefix
	}
	return n.gen.Next(ctx, tx, t.ID, prefix, confirmedAt.UTC().Year())
}
