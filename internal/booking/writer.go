// Package booking holds the availability resolver and the booking writer,
// the only component allowed to create bookings or change their status.
//
// Reserve serialises per (tenant, item): a Locker bounds the wait, the item
// row is locked inside the transaction, and the booking_slots primary key
// rejects any day claimed twice. Availability is always re-checked on the
// writer's own transaction.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/rentdesk/internal/database"
	"github.com/iliyamo/rentdesk/internal/lock"
	"github.com/iliyamo/rentdesk/internal/logger"
	"github.com/iliyamo/rentdesk/internal/metrics"
	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/pricing"
	"github.com/iliyamo/rentdesk/internal/queue"
	"github.com/iliyamo/rentdesk/internal/repository"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

// DefaultLockTimeout bounds lock waits when none is configured.
const DefaultLockTimeout = 5 * time.Second

// EventPublisher receives booking events after commit.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// InvoiceNumberer produces the number of a booking's invoice inside the
// confirming transaction.
type InvoiceNumberer interface {
	Number(ctx context.Context, tx *sqlx.Tx, t *model.Tenant, confirmedAt time.Time) (string, error)
}

// Deps wires a Writer. DB, the repositories and Numbers are required.
type Deps struct {
	DB          *sqlx.DB
	Tenants     *repository.TenantRepo
	Items       *repository.ItemRepo
	Customers   *repository.CustomerRepo
	Bookings    *repository.BookingRepo
	Invoices    *repository.InvoiceRepo
	Plans       *repository.PricingPlanRepo
	Numbers     InvoiceNumberer
	Locker      lock.Locker    // defaults to an in-process lock
	Events      EventPublisher // defaults to discarding events
	Metrics     *metrics.Metrics
	LockTimeout time.Duration
}

type Writer struct {
	db          *sqlx.DB
	tenants     *repository.TenantRepo
	items       *repository.ItemRepo
	customers   *repository.CustomerRepo
	bookings    *repository.BookingRepo
	invoices    *repository.InvoiceRepo
	plans       *repository.PricingPlanRepo
	resolver    *Resolver
	numbers     InvoiceNumberer
	locker      lock.Locker
	events      EventPublisher
	metrics     *metrics.Metrics
	lockTimeout time.Duration
	now         func() time.Time
}

func NewWriter(d Deps) *Writer {
	if d.DB == nil || d.Tenants == nil || d.Items == nil || d.Customers == nil ||
		d.Bookings == nil || d.Invoices == nil || d.Plans == nil || d.Numbers == nil {
		panic("booking.NewWriter: missing dependency")
	}
	if d.Locker == nil {
		d.Locker = lock.NewLocal()
	}
	if d.Events == nil {
		d.Events = queue.Noop{}
	}
	if d.LockTimeout <= 0 {
		d.LockTimeout = DefaultLockTimeout
	}
	return &Writer{
		db:          d.DB,
		tenants:     d.Tenants,
		items:       d.Items,
		customers:   d.Customers,
		bookings:    d.Bookings,
		invoices:    d.Invoices,
		plans:       d.Plans,
		resolver:    NewResolver(d.Items, d.Bookings),
		numbers:     d.Numbers,
		locker:      d.Locker,
		events:      d.Events,
		metrics:     d.Metrics,
		lockTimeout: d.LockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Resolver returns the availability resolver the writer checks with.
func (w *Writer) Resolver() *Resolver { return w.resolver }

// ReserveInput describes a new booking. A nil Price is quoted from the
// item's pricing plan.
type ReserveInput struct {
	ItemID     uint64
	CustomerID uint64
	Range      Range
	Price      *decimal.Decimal
	Deposit    decimal.Decimal
	Notes      string
}

// Reserve creates a PENDING booking if and only if no live booking of the
// item overlaps in.Range at commit time.
func (w *Writer) Reserve(ctx context.Context, tid tenant.ID, in ReserveInput) (*model.Booking, error) {
	b, err := w.reserve(ctx, tid, in)
	w.metrics.Reservation(outcome(err))
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("booking reserved",
		zap.Uint64("booking_id", b.ID),
		zap.Uint64("item_id", b.ItemID),
		zap.String("start_date", b.StartDate.String()),
		zap.String("end_date", b.EndDate.String()),
	)
	return b, nil
}

func (w *Writer) reserve(ctx context.Context, tid tenant.ID, in ReserveInput) (*model.Booking, error) {
	if tid == 0 {
		return nil, repository.ErrTenantRequired
	}
	if err := in.Range.Validate(); err != nil {
		return nil, err
	}
	if (in.Price != nil && in.Price.IsNegative()) || in.Deposit.IsNegative() {
		return nil, ErrInvalidPrice
	}

	var out *model.Booking
	err := w.withLock(ctx, itemKey(tid, in.ItemID), func(ctx context.Context) error {
		return database.InTx(ctx, w.db, func(tx *sqlx.Tx) error {
			item, err := w.items.LockTx(ctx, tx, tid, in.ItemID)
			if err != nil {
				return err
			}
			if item.Status != model.ItemActive {
				return fmt.Errorf("item %d is %s: %w", item.ID, item.Status, ErrItemUnavailable)
			}
			if _, err := w.customers.GetTx(ctx, tx, tid, in.CustomerID); err != nil {
				return fmt.Errorf("customer %d: %w", in.CustomerID, err)
			}
			conflicts, err := w.resolver.Conflicts(ctx, tx, tid, item.ID, in.Range, 0)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return &ConflictError{Conflicts: conflicts}
			}

			total, err := w.total(ctx, tx, tid, item, in.Range, in.Price)
			if err != nil {
				return err
			}
			b := &model.Booking{
				ItemID:     item.ID,
				CustomerID: in.CustomerID,
				StartDate:  in.Range.Start,
				EndDate:    in.Range.End,
				Status:     model.BookingPending,
				TotalPrice: total,
				Deposit:    in.Deposit,
				Notes:      in.Notes,
			}
			if err := w.bookings.CreateTx(ctx, tx, tid, b); err != nil {
				if errors.Is(err, repository.ErrSlotTaken) {
					return &ConflictError{}
				}
				return err
			}
			out = b
			return nil
		})
	})
	if err != nil {
		return nil, busy(err)
	}
	return out, nil
}

// Quote prices an interval for an item without writing anything.
func (w *Writer) Quote(ctx context.Context, tid tenant.ID, itemID uint64, r Range) (pricing.Quote, error) {
	if err := r.Validate(); err != nil {
		return pricing.Quote{}, err
	}
	item, err := w.items.Get(ctx, tid, itemID)
	if err != nil {
		return pricing.Quote{}, err
	}
	return w.quote(ctx, w.db, tid, item, r)
}

func (w *Writer) quote(ctx context.Context, q database.Querier, tid tenant.ID, item *model.Item, r Range) (pricing.Quote, error) {
	plan := pricing.Flat(item.BasePrice)
	stored, err := w.plans.GetTx(ctx, q, tid, item.ID)
	switch {
	case err == nil:
		plan = stored.Plan()
	case !errors.Is(err, repository.ErrNotFound):
		return pricing.Quote{}, err
	}
	return plan.Price(r.Start.Time, r.End.Time)
}

// total returns the supplied price, or the quoted one when none was given.
func (w *Writer) total(ctx context.Context, q database.Querier, tid tenant.ID, item *model.Item, r Range, supplied *decimal.Decimal) (decimal.Decimal, error) {
	if supplied != nil {
		return supplied.Round(pricing.DefaultScale), nil
	}
	qt, err := w.quote(ctx, q, tid, item, r)
	if err != nil {
		return decimal.Zero, err
	}
	return qt.Total, nil
}

// Confirm moves a PENDING booking to CONFIRMED and mints its invoice.
// Confirming a CONFIRMED booking returns it with its existing invoice.
func (w *Writer) Confirm(ctx context.Context, tid tenant.ID, id uint64) (*model.Booking, *model.Invoice, error) {
	if tid == 0 {
		return nil, nil, repository.ErrTenantRequired
	}
	var (
		b      *model.Booking
		inv    *model.Invoice
		cur    *model.Tenant
		minted bool
	)
	at := w.now()
	err := w.withLock(ctx, bookingKey(tid, id), func(ctx context.Context) error {
		return database.InTx(ctx, w.db, func(tx *sqlx.Tx) error {
			var err error
			b, err = w.bookings.LockTx(ctx, tx, tid, id)
			if err != nil {
				return err
			}
			switch b.Status {
			case model.BookingPending:
				if err := w.bookings.SetStatusTx(ctx, tx, tid, id, model.BookingPending, model.BookingConfirmed); err != nil {
					return err
				}
				b.Status = model.BookingConfirmed
			case model.BookingConfirmed:
			default:
				return &TransitionError{From: b.Status, To: model.BookingConfirmed}
			}

			// one invoice per booking: reuse it when it already exists
			inv, err = w.invoices.GetByBookingTx(ctx, tx, tid, id)
			if err == nil {
				return nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}

			cur, err = w.tenants.GetTx(ctx, tx, tid)
			if err != nil {
				return err
			}
			number, err := w.numbers.Number(ctx, tx, cur, at)
			if err != nil {
				return err
			}
			issue := model.DateOf(at)
			inv = &model.Invoice{
				BookingID:     b.ID,
				Number:        number,
				Amount:        b.TotalPrice,
				Currency:      cur.Currency,
				IssueDate:     issue,
				DueDate:       issue.AddDays(cur.PaymentTermsDays),
				PaymentStatus: model.PaymentUnpaid,
			}
			if err := w.invoices.CreateTx(ctx, tx, tid, inv); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					logger.FromContext(ctx).Error("invoice uniqueness violated on confirm",
						zap.Uint64("booking_id", id), zap.String("number", number), zap.Error(err))
					return fmt.Errorf("booking %d: %w", id, ErrDuplicateInvoice)
				}
				return err
			}
			minted = true
			return nil
		})
	})
	if err != nil {
		return nil, nil, busy(err)
	}
	if minted {
		w.metrics.Transition(string(model.BookingConfirmed))
		w.metrics.InvoiceMinted()
		w.publishConfirmed(ctx, tid, b, inv, at)
	}
	return b, inv, nil
}

func (w *Writer) publishConfirmed(ctx context.Context, tid tenant.ID, b *model.Booking, inv *model.Invoice, at time.Time) {
	ev := queue.BookingConfirmedEvent{
		TenantID:      uint64(tid),
		BookingID:     b.ID,
		ItemID:        b.ItemID,
		CustomerID:    b.CustomerID,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number,
		Total:         inv.Amount.StringFixed(pricing.DefaultScale),
		Currency:      inv.Currency,
		StartDate:     b.StartDate.String(),
		EndDate:       b.EndDate.String(),
		ConfirmedAt:   at.Format(time.RFC3339),
	}
	if err := w.events.PublishBookingConfirmed(ctx, ev); err != nil {
		logger.FromContext(ctx).Warn("booking.confirmed not published", zap.Uint64("booking_id", b.ID), zap.Error(err))
	}
}

// Start marks a CONFIRMED booking as IN_PROGRESS (item handed over).
func (w *Writer) Start(ctx context.Context, tid tenant.ID, id uint64) (*model.Booking, error) {
	return w.transition(ctx, tid, id, model.BookingInProgress)
}

// Finish marks an IN_PROGRESS booking as COMPLETED (item returned).
func (w *Writer) Finish(ctx context.Context, tid tenant.ID, id uint64) (*model.Booking, error) {
	return w.transition(ctx, tid, id, model.BookingCompleted)
}

// Cancel cancels a booking and frees its interval. Cancelling a cancelled
// booking is a no-op.
func (w *Writer) Cancel(ctx context.Context, tid tenant.ID, id uint64) (*model.Booking, error) {
	return w.transition(ctx, tid, id, model.BookingCancelled)
}

func (w *Writer) transition(ctx context.Context, tid tenant.ID, id uint64, to model.BookingStatus) (*model.Booking, error) {
	if tid == 0 {
		return nil, repository.ErrTenantRequired
	}
	var (
		b       *model.Booking
		changed bool
	)
	err := w.withLock(ctx, bookingKey(tid, id), func(ctx context.Context) error {
		return database.InTx(ctx, w.db, func(tx *sqlx.Tx) error {
			var err error
			b, err = w.bookings.LockTx(ctx, tx, tid, id)
			if err != nil {
				return err
			}
			if b.Status == to && to == model.BookingCancelled {
				return nil
			}
			if !CanTransition(b.Status, to) {
				return &TransitionError{From: b.Status, To: to}
			}
			if err := w.bookings.SetStatusTx(ctx, tx, tid, id, b.Status, to); err != nil {
				return err
			}
			if to == model.BookingCancelled {
				if err := w.bookings.ReleaseSlotsTx(ctx, tx, tid, id); err != nil {
					return err
				}
			}
			b.Status = to
			changed = true
			return nil
		})
	})
	if err != nil {
		return nil, busy(err)
	}
	if changed {
		w.metrics.Transition(string(to))
		logger.FromContext(ctx).Info("booking status changed", zap.Uint64("booking_id", id), zap.String("status", string(to)))
	}
	return b, nil
}

// Reschedule moves a PENDING or CONFIRMED booking to r. The booking's own
// interval does not count as a conflict. PENDING bookings are re-priced
// (or take price when given); CONFIRMED bookings keep their invoiced
// total and refuse a new price.
func (w *Writer) Reschedule(ctx context.Context, tid tenant.ID, id uint64, r Range, price *decimal.Decimal) (*model.Booking, error) {
	if tid == 0 {
		return nil, repository.ErrTenantRequired
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if price != nil && price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	// the item id picks the lock; it never changes for a booking
	current, err := w.bookings.Get(ctx, tid, id)
	if err != nil {
		return nil, err
	}

	var b *model.Booking
	err = w.withLock(ctx, itemKey(tid, current.ItemID), func(ctx context.Context) error {
		return database.InTx(ctx, w.db, func(tx *sqlx.Tx) error {
			item, err := w.items.LockTx(ctx, tx, tid, current.ItemID)
			if err != nil {
				return err
			}
			b, err = w.bookings.LockTx(ctx, tx, tid, id)
			if err != nil {
				return err
			}
			var total decimal.Decimal
			switch b.Status {
			case model.BookingPending:
				if total, err = w.total(ctx, tx, tid, item, r, price); err != nil {
					return err
				}
			case model.BookingConfirmed:
				if price != nil {
					return fmt.Errorf("booking %d is invoiced, price is fixed: %w", id, ErrInvalidTransition)
				}
				total = b.TotalPrice
			default:
				return &TransitionError{From: b.Status, To: b.Status}
			}

			conflicts, err := w.resolver.Conflicts(ctx, tx, tid, item.ID, r, b.ID)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return &ConflictError{Conflicts: conflicts}
			}
			if err := w.bookings.RescheduleTx(ctx, tx, tid, b, r.Start, r.End, total); err != nil {
				if errors.Is(err, repository.ErrSlotTaken) {
					return &ConflictError{}
				}
				return err
			}
			return nil
		})
	})
	if err != nil {
		return nil, busy(err)
	}
	return b, nil
}

// withLock runs fn holding key. Both the wait and fn's context are bounded
// by the lock timeout, so a stuck transaction surfaces as ErrBusy.
func (w *Writer) withLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, w.lockTimeout)
	defer cancel()

	start := time.Now()
	release, err := w.locker.Lock(ctx, key)
	w.metrics.LockWait(time.Since(start))
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return fmt.Errorf("%s: %w", key, ErrBusy)
		}
		return err
	}
	defer release()
	return fn(ctx)
}

// busy folds storage-level and key lock timeouts into ErrBusy.
func busy(err error) error {
	if err == nil || errors.Is(err, ErrBusy) {
		return err
	}
	if database.IsBusy(err) || errors.Is(err, lock.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return err
}

func itemKey(tid tenant.ID, itemID uint64) string {
	return fmt.Sprintf("booking:item:%d:%d", tid, itemID)
}

func bookingKey(tid tenant.ID, id uint64) string {
	return fmt.Sprintf("booking:id:%d:%d", tid, id)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrInvalidRange), errors.Is(err, ErrInvalidPrice):
		return "invalid"
	}
	return "error"
}
