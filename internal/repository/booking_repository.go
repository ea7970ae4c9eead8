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

const bookingCols = "id, tenant_id, item_id, customer_id, start_date, end_date, status, total_price, deposit, notes, created_at, updated_at"

// slotBatch caps the rows of one multi-row slot insert.
const slotBatch = 200

type BookingFilter struct {
	ItemID     uint64
	CustomerID uint64
	Status     model.BookingStatus
	IDs        []uint64
	// From/To keep bookings overlapping [From, To); either may be zero.
	From   model.Date
	To     model.Date
	Limit  int
	Offset int
}

// BookingRepo provides tenant-scoped access to bookings and the per-day
// slot rows that back them.
type BookingRepo struct{ db *sqlx.DB }

func NewBookingRepo(db *sqlx.DB) *BookingRepo { return &BookingRepo{db: db} }

func (r *BookingRepo) DB() *sqlx.DB { return r.db }

// CreateTx inserts b under tid together with one slot row per occupied day.
// A slot already held by another booking yields ErrSlotTaken.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, tid tenant.ID, b *model.Booking) error {
	if err := requireTenant(tid); err != nil {
		return err
	}
	b.TenantID = tid
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	res, err := tx.ExecContext(ctx, `INSERT INTO bookings (tenant_id, item_id, customer_id, start_date, end_date, status, total_price, deposit, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uint64(tid), b.ItemID, b.CustomerID, b.StartDate, b.EndDate, b.Status, b.TotalPrice, b.Deposit, b.Notes, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return r.claimSlots(ctx, tx, b)
}

// claimSlots writes the (item, day) rows of b. The primary key on
// booking_slots rejects a day claimed by two live bookings.
func (r *BookingRepo) claimSlots(ctx context.Context, tx *sqlx.Tx, b *model.Booking) error {
	var days []model.Date
	for d := b.StartDate; d.Before(b.EndDate.Time); d = d.AddDays(1) {
		days = append(days, d)
	}
	for len(days) > 0 {
		n := len(days)
		if n > slotBatch {
			n = slotBatch
		}
		holders := make([]string, n)
		args := make([]any, 0, n*4)
		for i, d := range days[:n] {
			holders[i] = "(?, ?, ?, ?)"
			args = append(args, b.ItemID, d, uint64(b.TenantID), b.ID)
		}
		_, err := tx.ExecContext(ctx, "INSERT INTO booking_slots (item_id, day, tenant_id, booking_id) VALUES "+strings.Join(holders, ", "), args...)
		if err != nil {
			if database.IsDuplicate(err) {
				return fmt.Errorf("item %d: %w", b.ItemID, ErrSlotTaken)
			}
			return err
		}
		days = days[n:]
	}
	return nil
}

// ReleaseSlotsTx frees the days held by a booking.
func (r *BookingRepo) ReleaseSlotsTx(ctx context.Context, tx *sqlx.Tx, tid tenant.ID, id uint64) error {
	if err := requireTenant(tid); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM booking_slots WHERE booking_id = ? AND tenant_id = ?", id, uint64(tid))
	return err
}

func (r *BookingRepo) Get(ctx context.Context, tid tenant.ID, id uint64) (*model.Booking, error) {
	var b model.Booking
	if err := getScoped(ctx, r.db, &b, "bookings", bookingCols, id, tid, false); err != nil {
		return nil, err
	}
	return &b, nil
}

// LockTx loads the booking inside tx with a row lock.
func (r *BookingRepo) LockTx(ctx context.Context, tx *sqlx.Tx, tid tenant.ID, id uint64) (*model.Booking, error) {
	var b model.Booking
	if err := getScoped(ctx, tx, &b, "bookings", bookingCols, id, tid, true); err != nil {
		return nil, err
	}
	return &b, nil
}

// Overlapping returns the live bookings of an item whose interval overlaps
// [start, end), skipping excludeID. Cancelled bookings never overlap.
func (r *BookingRepo) Overlapping(ctx context.Context, q database.Querier, tid tenant.ID, itemID uint64, start, end model.Date, excludeID uint64) ([]model.Booking, error) {
	if err := requireTenant(tid); err != nil {
		return nil, err
	}
	out := []model.Booking{}
	err := q.SelectContext(ctx, &out, "SELECT "+bookingCols+` FROM bookings
		WHERE tenant_id = ? AND item_id = ? AND status <> ?
		AND start_date < ? AND end_date > ? AND id <> ?
		ORDER BY start_date, id`,
		uint64(tid), itemID, model.BookingCancelled, end, start, excludeID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BookingRepo) List(ctx context.Context, tid tenant.ID, f BookingFilter) ([]model.Booking, error) {
	if err := requireTenant(tid); err != nil {
		return nil, err
	}
	w := tenantWhere(tid)
	if f.ItemID != 0 {
		w.add("item_id = ?", f.ItemID)
	}
	if f.CustomerID != 0 {
		w.add("customer_id = ?", f.CustomerID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if !f.To.IsZero() {
		w.add("start_date < ?", f.To)
	}
	if !f.From.IsZero() {
		w.add("end_date > ?", f.From)
	}
	if err := w.ids("id", f.IDs); err != nil {
		return nil, err
	}
	out := []model.Booking{}
	q := "SELECT " + bookingCols + " FROM bookings" + w.String() + " ORDER BY start_date, id" + page(f.Limit, f.Offset)
	if err := r.db.SelectContext(ctx, &out, q, w.args...); err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatusTx moves the booking from one status to another. The current
// status is part of the match so a concurrent transition cannot be lost.
func (r *BookingRepo) SetStatusTx(ctx context.Context, tx *sqlx.Tx, tid tenant.ID, id uint64, from, to model.BookingStatus) error {
	if err := requireTenant(tid); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND tenant_id = ? AND status = ?",
		to, time.Now().UTC(), id, uint64(tid), from)
	if err != nil {
		return err
	}
	return affected(ctx, tx, res, "bookings", id, tid)
}

// RescheduleTx moves the booking to new dates and price and rewrites its
// slot rows.
func (r *BookingRepo) RescheduleTx(ctx context.Context, tx *sqlx.Tx, tid tenant.ID, b *model.Booking, start, end model.Date, total decimal.Decimal) error {
	if err := requireTenant(tid); err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, "UPDATE bookings SET start_date = ?, end_date = ?, total_price = ?, updated_at = ? WHERE id = ? AND tenant_id = ?",
		start, end, total, now, b.ID, uint64(tid))
	if err != nil {
		return err
	}
	if err := affected(ctx, tx, res, "bookings", b.ID, tid); err != nil {
		return err
	}
	if err := r.ReleaseSlotsTx(ctx, tx, tid, b.ID); err != nil {
		return err
	}
	b.StartDate, b.EndDate, b.TotalPrice, b.UpdatedAt = start, end, total, now
	return r.claimSlots(ctx, tx, b)
}
