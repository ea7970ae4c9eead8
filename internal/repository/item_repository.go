package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentdesk/internal/database"
	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

const itemCols = "id, tenant_id, type, name, base_price, status, attributes, photos, created_at, updated_at"

// ItemFilter narrows List. It never carries a tenant; the tenant comes from
// the method parameter.
type ItemFilter struct {
	Type   model.ItemType
	Status model.ItemStatus
	IDs    []uint64
	// FreeFrom/FreeTo, when both set, keep only items without a live
	// booking overlapping [FreeFrom, FreeTo).
	FreeFrom model.Date
	FreeTo   model.Date
	Limit    int
	Offset   int
}

// ItemPatch lists the fields an update may change; nil fields stay as is.
type ItemPatch struct {
	Type       *model.ItemType
	Name       *string
	BasePrice  *decimal.Decimal
	Status     *model.ItemStatus
	Attributes *model.Attributes
	Photos     *model.StringList
}

// ItemRepo provides tenant-scoped access to rentable items.
type ItemRepo struct{ db *sqlx.DB }

func NewItemRepo(db *sqlx.DB) *ItemRepo { return &ItemRepo{db: db} }

// DB exposes the handle so callers can open transactions.
func (r *ItemRepo) DB() *sqlx.DB { return r.db }

// Create inserts it under tid, overriding whatever tenant it carried.
func (r *ItemRepo) Create(ctx context.Context, tid tenant.ID, it *model.Item) error {
	if err := requireTenant(tid); err != nil {
		return err
	}
	it.TenantID = tid
	if it.Status == "" {
		it.Status = model.ItemActive
	}
	now := time.Now().UTC()
	it.CreatedAt, it.UpdatedAt = now, now
	res, err := r.db.ExecContext(ctx, `INSERT INTO items (tenant_id, type, name, base_price, status, attributes, photos, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uint64(tid), it.Type, it.Name, it.BasePrice, it.Status, it.Attributes, it.Photos, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return nil
}

// Get loads one item of tid.
func (r *ItemRepo) Get(ctx context.Context, tid tenant.ID, id uint64) (*model.Item, error) {
	var it model.Item
	if err := getScoped(ctx, r.db, &it, "items", itemCols, id, tid, false); err != nil {
		return nil, err
	}
	return &it, nil
}

// LockTx loads the item inside tx and holds its row lock until the
// transaction ends. Bookings of one item serialise on this lock.
func (r *ItemRepo) LockTx(ctx context.Context, tx *sqlx.Tx, tid tenant.ID, id uint64) (*model.Item, error) {
	var it model.Item
	if err := getScoped(ctx, tx, &it, "items", itemCols, id, tid, true); err != nil {
		return nil, err
	}
	return &it, nil
}

// List returns the items of tid matching f, newest first.
func (r *ItemRepo) List(ctx context.Context, tid tenant.ID, f ItemFilter) ([]model.Item, error) {
	if err := requireTenant(tid); err != nil {
		return nil, err
	}
	w := tenantWhere(tid)
	if f.Type != "" {
		w.add("type = ?", f.Type)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if err := w.ids("id", f.IDs); err != nil {
		return nil, err
	}
	if !f.FreeFrom.IsZero() && !f.FreeTo.IsZero() {
		w.add(`NOT EXISTS (SELECT 1 FROM bookings b
			WHERE b.item_id = items.id AND b.tenant_id = items.tenant_id
			AND b.status <> ? AND b.start_date < ? AND b.end_date > ?)`,
			model.BookingCancelled, f.FreeTo, f.FreeFrom)
	}
	items := []model.Item{}
	q := "SELECT " + itemCols + " FROM items" + w.String() + " ORDER BY id DESC" + page(f.Limit, f.Offset)
	if err := r.db.SelectContext(ctx, &items, q, w.args...); err != nil {
		return nil, err
	}
	return items, nil
}

// Update applies p to the item of tid and returns the stored row.
func (r *ItemRepo) Update(ctx context.Context, tid tenant.ID, id uint64, p ItemPatch) (*model.Item, error) {
	if err := requireTenant(tid); err != nil {
		return nil, err
	}
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if p.Type != nil {
		sets, args = append(sets, "type = ?"), append(args, *p.Type)
	}
	if p.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *p.Name)
	}
	if p.BasePrice != nil {
		sets, args = append(sets, "base_price = ?"), append(args, *p.BasePrice)
	}
	if p.Status != nil {
		sets, args = append(sets, "status = ?"), append(args, *p.Status)
	}
	if p.Attributes != nil {
		sets, args = append(sets, "attributes = ?"), append(args, *p.Attributes)
	}
	if p.Photos != nil {
		sets, args = append(sets, "photos = ?"), append(args, *p.Photos)
	}
	args = append(args, id, uint64(tid))
	res, err := r.db.ExecContext(ctx, "UPDATE items SET "+strings.Join(sets, ", ")+" WHERE id = ? AND tenant_id = ?", args...)
	if err != nil {
		return nil, err
	}
	if err := affected(ctx, r.db, res, "items", id, tid); err != nil {
		return nil, err
	}
	return r.Get(ctx, tid, id)
}

// Delete removes the item and its pricing plan. Items that were ever booked
// are kept for history and yield ErrInUse.
func (r *ItemRepo) Delete(ctx context.Context, tid tenant.ID, id uint64) error {
	if err := requireTenant(tid); err != nil {
		return err
	}
	return database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var it model.Item
		if err := getScoped(ctx, tx, &it, "items", itemCols, id, tid, true); err != nil {
			return err
		}
		var n int
		if err := tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM bookings WHERE tenant_id = ? AND item_id = ?", uint64(tid), id); err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("item %d has %d bookings: %w", id, n, ErrInUse)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM pricing_plans WHERE item_id = ? AND tenant_id = ?", id, uint64(tid)); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM items WHERE id = ? AND tenant_id = ?", id, uint64(tid))
		if err != nil {
			return err
		}
		return affected(ctx, tx, res, "items", id, tid)
	})
}
