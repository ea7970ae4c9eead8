package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/rentdesk/internal/database"
	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

const tenantCols = "id, name, subdomain, currency, invoice_prefix, payment_terms_days, created_at, updated_at"

// TenantRepo manages the tenants table. It is the only repository that is
// not itself tenant-scoped.
type TenantRepo struct{ db *sqlx.DB }

func NewTenantRepo(db *sqlx.DB) *TenantRepo { return &TenantRepo{db: db} }

// Create onboards a tenant. A taken subdomain yields ErrDuplicate.
func (r *TenantRepo) Create(ctx context.Context, t *model.Tenant) error {
	t.Subdomain = strings.ToLower(strings.TrimSpace(t.Subdomain))
	if t.Currency == "" {
		t.Currency = "EUR"
	}
	if t.InvoicePrefix == "" {
		t.InvoicePrefix = "INV"
	}
	if t.PaymentTermsDays <= 0 {
		t.PaymentTermsDays = 14
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	res, err := r.db.ExecContext(ctx, `INSERT INTO tenants (name, subdomain, currency, invoice_prefix, payment_terms_days, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Subdomain, t.Currency, t.InvoicePrefix, t.PaymentTermsDays, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if database.IsDuplicate(err) {
			return fmt.Errorf("subdomain %q: %w", t.Subdomain, ErrDuplicate)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = tenant.ID(id)
	return nil
}

// GetByID loads a tenant. Unknown ids yield ErrNotFound.
func (r *TenantRepo) GetByID(ctx context.Context, id tenant.ID) (*model.Tenant, error) {
	return r.GetTx(ctx, r.db, id)
}

// GetTx is GetByID on an explicit querier.
func (r *TenantRepo) GetTx(ctx context.Context, q database.Querier, id tenant.ID) (*model.Tenant, error) {
	var t model.Tenant
	err := q.GetContext(ctx, &t, "SELECT "+tenantCols+" FROM tenants WHERE id = ?", uint64(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetBySubdomain loads a tenant by its host label.
func (r *TenantRepo) GetBySubdomain(ctx context.Context, sub string) (*model.Tenant, error) {
	var t model.Tenant
	err := r.db.GetContext(ctx, &t, "SELECT "+tenantCols+" FROM tenants WHERE subdomain = ?", strings.ToLower(sub))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// LookupSubdomain implements tenant.Directory.
func (r *TenantRepo) LookupSubdomain(ctx context.Context, sub string) (tenant.ID, error) {
	t, err := r.GetBySubdomain(ctx, sub)
	if errors.Is(err, ErrNotFound) {
		return 0, tenant.ErrTenantNotFound
	}
	if err != nil {
		return 0, err
	}
	return t.ID, nil
}
