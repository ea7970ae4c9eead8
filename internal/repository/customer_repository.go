package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/rentdesk/internal/database"
	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

const customerCols = "id, tenant_id, natural_key, name, email, phone, created_at, updated_at"

type CustomerFilter struct {
	Search string // substring of name, email or natural key
	IDs    []uint64
	Limit  int
	Offset int
}

type CustomerPatch struct {
	NaturalKey *string
	Name       *string
	Email      *string
	Phone      *string
}

// CustomerRepo provides tenant-scoped access to customers.
type CustomerRepo struct{ db *sqlx.DB }

func NewCustomerRepo(db *sqlx.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// Create inserts c under tid. A natural key already used within the tenant
// yields ErrDuplicate; other tenants may reuse it.
func (r *CustomerRepo) Create(ctx context.Context, tid tenant.ID, c *model.Customer) error {
	if err := requireTenant(tid); err != nil {
		return err
	}
	c.TenantID = tid
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	res, err := r.db.ExecContext(ctx, `INSERT INTO customers (tenant_id, natural_key, name, email, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uint64(tid), c.NaturalKey, c.Name, c.Email, c.Phone, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if database.IsDuplicate(err) {
			return fmt.Errorf("customer key %q: %w", c.NaturalKey, ErrDuplicate)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

func (r *CustomerRepo) Get(ctx context.Context, tid tenant.ID, id uint64) (*model.Customer, error) {
	return r.GetTx(ctx, r.db, tid, id)
}

// GetTx is Get on an explicit querier, typically the booking transaction.
func (r *CustomerRepo) GetTx(ctx context.Context, q database.Querier, tid tenant.ID, id uint64) (*model.Customer, error) {
	var c model.Customer
	if err := getScoped(ctx, q, &c, "customers", customerCols, id, tid, false); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepo) List(ctx context.Context, tid tenant.ID, f CustomerFilter) ([]model.Customer, error) {
	if err := requireTenant(tid); err != nil {
		return nil, err
	}
	w := tenantWhere(tid)
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		w.add("(name LIKE ? OR email LIKE ? OR natural_key LIKE ?)", like, like, like)
	}
	if err := w.ids("id", f.IDs); err != nil {
		return nil, err
	}
	out := []model.Customer{}
	q := "SELECT " + customerCols + " FROM customers" + w.String() + " ORDER BY name, id" + page(f.Limit, f.Offset)
	if err := r.db.SelectContext(ctx, &out, q, w.args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CustomerRepo) Update(ctx context.Context, tid tenant.ID, id uint64, p CustomerPatch) (*model.Customer, error) {
	if err := requireTenant(tid); err != nil {
		return nil, err
	}
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if p.NaturalKey != nil {
		sets, args = append(sets, "natural_key = ?"), append(args, *p.NaturalKey)
	}
	if p.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *p.Name)
	}
	if p.Email != nil {
		sets, args = append(sets, "email = ?"), append(args, *p.Email)
	}
	if p.Phone != nil {
		sets, args = append(sets, "phone = ?"), append(args, *p.Phone)
	}
	args = append(args, id, uint64(tid))
	res, err := r.db.ExecContext(ctx, "UPDATE customers SET "+strings.Join(sets, ", ")+" WHERE id = ? AND tenant_id = ?", args...)
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, fmt.Errorf("customer key: %w", ErrDuplicate)
		}
		return nil, err
	}
	if err := affected(ctx, r.db, res, "customers", id, tid); err != nil {
		return nil, err
	}
	return r.Get(ctx, tid, id)
}

// Delete removes a customer without bookings; otherwise ErrInUse.
func (r *CustomerRepo) Delete(ctx context.Context, tid tenant.ID, id uint64) error {
	if err := requireTenant(tid); err != nil {
		return err
	}
	return database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM bookings WHERE tenant_id = ? AND customer_id = ?", uint64(tid), id); err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("customer %d has %d bookings: %w", id, n, ErrInUse)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM customers WHERE id = ? AND tenant_id = ?", id, uint64(tid))
		if err != nil {
			return err
		}
		return affected(ctx, tx, res, "customers", id, tid)
	})
}
