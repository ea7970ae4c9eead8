package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/rentdesk/internal/database"
	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

const invoiceCols = "id, tenant_id, booking_id, number, amount, currency, issue_date, due_date, payment_status, paid_at, created_at, updated_at"

type InvoiceFilter struct {
	Status model.PaymentStatus
	IDs    []uint64
	Limit  int
	Offset int
}

// InvoiceRepo provides tenant-scoped access to invoices.
type InvoiceRepo struct{ db *sqlx.DB }

func NewInvoiceRepo(db *sqlx.DB) *InvoiceRepo { return &InvoiceRepo{db: db} }

// CreateTx inserts inv under tid. A second invoice for the same booking,
// or a reused number, yields ErrDuplicate.
func (r *InvoiceRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, tid tenant.ID, inv *model.Invoice) error {
	if err := requireTenant(tid); err != nil {
		return err
	}
	inv.TenantID = tid
	if inv.PaymentStatus == "" {
		inv.PaymentStatus = model.PaymentUnpaid
	}
	now := time.Now().UTC()
	inv.CreatedAt, inv.UpdatedAt = now, now
	res, err := tx.ExecContext(ctx, `INSERT INTO invoices (tenant_id, booking_id, number, amount, currency, issue_date, due_date, payment_status, paid_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uint64(tid), inv.BookingID, inv.Number, inv.Amount, inv.Currency, inv.IssueDate, inv.DueDate, inv.PaymentStatus, inv.PaidAt, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		if database.IsDuplicate(err) {
			return fmt.Errorf("invoice for booking %d: %w", inv.BookingID, ErrDuplicate)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = uint64(id)
	return nil
}

func (r *InvoiceRepo) Get(ctx context.Context, tid tenant.ID, id uint64) (*model.Invoice, error) {
	var inv model.Invoice
	if err := getScoped(ctx, r.db, &inv, "invoices", invoiceCols, id, tid, false); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepo) GetByBooking(ctx context.Context, tid tenant.ID, bookingID uint64) (*model.Invoice, error) {
	return r.GetByBookingTx(ctx, r.db, tid, bookingID)
}

// GetByBookingTx returns the invoice of a booking, or ErrNotFound.
func (r *InvoiceRepo) GetByBookingTx(ctx context.Context, q database.Querier, tid tenant.ID, bookingID uint64) (*model.Invoice, error) {
	if err := requireTenant(tid); err != nil {
		return nil, err
	}
	var inv model.Invoice
	err := q.GetContext(ctx, &inv, "SELECT "+invoiceCols+" FROM invoices WHERE booking_id = ? AND tenant_id = ?", bookingID, uint64(tid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepo) List(ctx context.Context, tid tenant.ID, f InvoiceFilter) ([]model.Invoice, error) {
	if err := requireTenant(tid); err != nil {
		return nil, err
	}
	w := tenantWhere(tid)
	if f.Status != "" {
		w.add("payment_status = ?", f.Status)
	}
	if err := w.ids("id", f.IDs); err != nil {
		return nil, err
	}
	out := []model.Invoice{}
	q := "SELECT " + invoiceCols + " FROM invoices" + w.String() + " ORDER BY id DESC" + page(f.Limit, f.Offset)
	if err := r.db.SelectContext(ctx, &out, q, w.args...); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkPaid records payment. Paying a paid invoice keeps the first paid_at.
func (r *InvoiceRepo) MarkPaid(ctx context.Context, tid tenant.ID, id uint64, at time.Time) (*model.Invoice, error) {
	if err := requireTenant(tid); err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, "UPDATE invoices SET payment_status = ?, paid_at = COALESCE(paid_at, ?), updated_at = ? WHERE id = ? AND tenant_id = ?",
		model.PaymentPaid, at.UTC(), time.Now().UTC(), id, uint64(tid))
	if err != nil {
		return nil, err
	}
	if err := affected(ctx, r.db, res, "invoices", id, tid); err != nil {
		return nil, err
	}
	return r.Get(ctx, tid, id)
}
