package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/rentdesk/internal/database"
	"github.com/iliyamo/rentdesk/internal/database/dbtest"
	"github.com/iliyamo/rentdesk/internal/logger"
	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/repository"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

func TestTenantRequired(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	items := repository.NewItemRepo(db)
	if err := items.Create(ctx, 0, &model.Item{Name: "x"}); !errors.Is(err, repository.ErrTenantRequired) {
		t.Fatalf("create: %v", err)
	}
	if _, err := items.Get(ctx, 0, 1); !errors.Is(err, repository.ErrTenantRequired) {
		t.Fatalf("get: %v", err)
	}
	if _, err := items.List(ctx, 0, repository.ItemFilter{}); !errors.Is(err, repository.ErrTenantRequired) {
		t.Fatalf("list: %v", err)
	}
	if _, err := repository.NewCustomerRepo(db).List(ctx, 0, repository.CustomerFilter{}); !errors.Is(err, repository.ErrTenantRequired) {
		t.Fatalf("customers: %v", err)
	}
	if _, err := repository.NewBookingRepo(db).List(ctx, 0, repository.BookingFilter{}); !errors.Is(err, repository.ErrTenantRequired) {
		t.Fatalf("bookings: %v", err)
	}
	if _, err := repository.NewInvoiceRepo(db).List(ctx, 0, repository.InvoiceFilter{}); !errors.Is(err, repository.ErrTenantRequired) {
		t.Fatalf("invoices: %v", err)
	}
}

func TestCreateStampsTenant(t *testing.T) {
	db := dbtest.Open(t)
	a := dbtest.Tenant(t, db, "a")
	b := dbtest.Tenant(t, db, "b")
	items := repository.NewItemRepo(db)
	it := &model.Item{TenantID: b, Type: model.ItemBoat, Name: "Skiff", BasePrice: decimal.NewFromInt(80)}
	if err := items.Create(context.Background(), a, it); err != nil {
		t.Fatal(err)
	}
	if it.TenantID != a {
		t.Fatalf("tenant not overridden: %d", it.TenantID)
	}
	var stored uint64
	if err := db.Get(&stored, "SELECT tenant_id FROM items WHERE id = ?", it.ID); err != nil {
		t.Fatal(err)
	}
	if tenant.ID(stored) != a {
		t.Fatalf("stored under tenant %d", stored)
	}
}

func TestIsolation(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	a := dbtest.Tenant(t, db, "a")
	b := dbtest.Tenant(t, db, "b")
	items := repository.NewItemRepo(db)
	mine := dbtest.Item(t, db, a, "Van", "50")
	theirs := dbtest.Item(t, db, b, "Truck", "90")

	if _, err := items.Get(ctx, a, theirs); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("get other tenant item: %v", err)
	}
	if _, err := items.Get(ctx, a, 99999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("get missing item: %v", err)
	}

	// ids in a filter narrow the tenant's rows, they never widen them
	got, err := items.List(ctx, a, repository.ItemFilter{IDs: []uint64{mine, theirs}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != mine {
		t.Fatalf("list returned %+v", got)
	}

	name := "stolen"
	if _, err := items.Update(ctx, a, theirs, repository.ItemPatch{Name: &name}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("update other tenant item: %v", err)
	}
	if err := items.Delete(ctx, a, theirs); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("delete other tenant item: %v", err)
	}
	still, err := items.Get(ctx, b, theirs)
	if err != nil || still.Name != "Truck" {
		t.Fatalf("other tenant row modified: %+v %v", still, err)
	}
}

func TestCrossTenantProbeIsLogged(t *testing.T) {
	db := dbtest.Open(t)
	a := dbtest.Tenant(t, db, "a")
	b := dbtest.Tenant(t, db, "b")
	theirs := dbtest.Item(t, db, b, "Truck", "90")

	core, logs := observer.New(zap.WarnLevel)
	ctx := logger.WithContext(context.Background(), zap.New(core))
	if _, err := repository.NewItemRepo(db).Get(ctx, a, theirs); !errors.Is(err, repository.ErrNotFound) {
		t.Fatal(err)
	}
	entries := logs.FilterMessage("cross-tenant access attempt").All()
	if len(entries) != 1 {
		t.Fatalf("expected one security event, got %d", len(entries))
	}
	if entries[0].ContextMap()["owner_tenant_id"] != uint64(b) {
		t.Fatalf("fields %v", entries[0].ContextMap())
	}

	// a plain miss is not a security event
	if _, err := repository.NewItemRepo(db).Get(ctx, a, 424242); !errors.Is(err, repository.ErrNotFound) {
		t.Fatal(err)
	}
	if logs.Len() != 1 {
		t.Fatalf("missing row logged as probe")
	}
}

func TestItemListFilters(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	a := dbtest.Tenant(t, db, "a")
	items := repository.NewItemRepo(db)
	van := dbtest.Item(t, db, a, "Van", "50")
	boat := &model.Item{Type: model.ItemBoat, Name: "Skiff", BasePrice: decimal.NewFromInt(80), Attributes: model.Attributes{"berths": float64(2)}}
	if err := items.Create(ctx, a, boat); err != nil {
		t.Fatal(err)
	}
	cust := dbtest.Customer(t, db, a, "C-1")
	now := time.Now().UTC()
	if _, err := db.Exec(`INSERT INTO bookings (tenant_id, item_id, customer_id, start_date, end_date, status, total_price, deposit, notes, created_at, updated_at)
		VALUES (?, ?, ?, '2025-03-01', '2025-03-05', 'PENDING', '200', '0', '', ?, ?)`, uint64(a), van, cust, now, now); err != nil {
		t.Fatal(err)
	}

	boats, err := items.List(ctx, a, repository.ItemFilter{Type: model.ItemBoat})
	if err != nil || len(boats) != 1 || boats[0].Attributes["berths"] != float64(2) {
		t.Fatalf("boats %+v %v", boats, err)
	}
	free, err := items.List(ctx, a, repository.ItemFilter{FreeFrom: model.NewDate(2025, 3, 2), FreeTo: model.NewDate(2025, 3, 3)})
	if err != nil || len(free) != 1 || free[0].ID != boat.ID {
		t.Fatalf("free items %+v %v", free, err)
	}
	free, err = items.List(ctx, a, repository.ItemFilter{FreeFrom: model.NewDate(2025, 3, 5), FreeTo: model.NewDate(2025, 3, 6)})
	if err != nil || len(free) != 2 {
		t.Fatalf("back to back window should leave both free: %+v %v", free, err)
	}

	if err := items.Delete(ctx, a, van); !errors.Is(err, repository.ErrInUse) {
		t.Fatalf("delete booked item: %v", err)
	}
	if err := items.Delete(ctx, a, boat.ID); err != nil {
		t.Fatalf("delete unbooked item: %v", err)
	}
}

func TestCustomerNaturalKey(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	a := dbtest.Tenant(t, db, "a")
	b := dbtest.Tenant(t, db, "b")
	customers := repository.NewCustomerRepo(db)

	if err := customers.Create(ctx, a, &model.Customer{NaturalKey: "ID-1", Name: "Ana"}); err != nil {
		t.Fatal(err)
	}
	if err := customers.Create(ctx, a, &model.Customer{NaturalKey: "ID-1", Name: "Ana again"}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("duplicate key in tenant: %v", err)
	}
	if err := customers.Create(ctx, b, &model.Customer{NaturalKey: "ID-1", Name: "Other Ana"}); err != nil {
		t.Fatalf("same key in another tenant: %v", err)
	}
	list, err := customers.List(ctx, a, repository.CustomerFilter{Search: "ana"})
	if err != nil || len(list) != 1 {
		t.Fatalf("search %+v %v", list, err)
	}
}

func TestInvoiceLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	a := dbtest.Tenant(t, db, "a")
	b := dbtest.Tenant(t, db, "b")
	item := dbtest.Item(t, db, a, "Van", "50")
	cust := dbtest.Customer(t, db, a, "C-1")
	bookings := repository.NewBookingRepo(db)
	invoices := repository.NewInvoiceRepo(db)

	bk := &model.Booking{ItemID: item, CustomerID: cust, StartDate: model.NewDate(2025, 3, 1), EndDate: model.NewDate(2025, 3, 3),
		Status: model.BookingConfirmed, TotalPrice: decimal.NewFromInt(100)}
	inv := &model.Invoice{BookingID: 0, Number: "INV-2025-0001", Amount: decimal.NewFromInt(100), Currency: "EUR",
		IssueDate: model.NewDate(2025, 3, 1), DueDate: model.NewDate(2025, 3, 15)}
	err := database.InTx(ctx, db, func(tx *sqlx.Tx) error {
		if err := bookings.CreateTx(ctx, tx, a, bk); err != nil {
			return err
		}
		inv.BookingID = bk.ID
		return invoices.CreateTx(ctx, tx, a, inv)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = database.InTx(ctx, db, func(tx *sqlx.Tx) error {
		dup := *inv
		dup.Number = "INV-2025-0002"
		return invoices.CreateTx(ctx, tx, a, &dup)
	})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("second invoice for a booking: %v", err)
	}

	paid, err := invoices.MarkPaid(ctx, a, inv.ID, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	if err != nil || paid.PaymentStatus != model.PaymentPaid || paid.PaidAt == nil {
		t.Fatalf("mark paid: %+v %v", paid, err)
	}
	first := *paid.PaidAt
	again, err := invoices.MarkPaid(ctx, a, inv.ID, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	if err != nil || !again.PaidAt.Equal(first) {
		t.Fatalf("second payment moved paid_at: %+v %v", again, err)
	}
	if _, err := invoices.MarkPaid(ctx, b, inv.ID, time.Now()); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("other tenant: %v", err)
	}
	got, err := invoices.GetByBooking(ctx, a, bk.ID)
	if err != nil || got.ID != inv.ID || got.IssueDate.String() != "2025-03-01" {
		t.Fatalf("by booking: %+v %v", got, err)
	}
}

func TestSlotsRejectDoubleClaim(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	a := dbtest.Tenant(t, db, "a")
	item := dbtest.Item(t, db, a, "Van", "50")
	cust := dbtest.Customer(t, db, a, "C-1")
	bookings := repository.NewBookingRepo(db)

	create := func(start, end model.Date) error {
		return database.InTx(ctx, db, func(tx *sqlx.Tx) error {
			return bookings.CreateTx(ctx, tx, a, &model.Booking{ItemID: item, CustomerID: cust, StartDate: start, EndDate: end,
				Status: model.BookingPending, TotalPrice: decimal.Zero})
		})
	}
	if err := create(model.NewDate(2025, 3, 1), model.NewDate(2025, 3, 5)); err != nil {
		t.Fatal(err)
	}
	// bypassing the availability check still cannot double book
	if err := create(model.NewDate(2025, 3, 4), model.NewDate(2025, 3, 6)); !errors.Is(err, repository.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if err := create(model.NewDate(2025, 3, 5), model.NewDate(2025, 3, 6)); err != nil {
		t.Fatalf("back to back: %v", err)
	}
	var n int
	if err := db.Get(&n, "SELECT COUNT(*) FROM bookings"); err != nil || n != 2 {
		t.Fatalf("rolled back booking persisted: %d %v", n, err)
	}
}

func TestTenantDirectory(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	tenants := repository.NewTenantRepo(db)
	acme := &model.Tenant{Name: "Acme Rentals", Subdomain: "Acme"}
	if err := tenants.Create(ctx, acme); err != nil {
		t.Fatal(err)
	}
	if acme.InvoicePrefix != "INV" || acme.PaymentTermsDays != 14 {
		t.Fatalf("defaults not applied: %+v", acme)
	}
	if err := tenants.Create(ctx, &model.Tenant{Name: "Copy", Subdomain: "acme"}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("duplicate subdomain: %v", err)
	}
	id, err := tenants.LookupSubdomain(ctx, "ACME")
	if err != nil || id != acme.ID {
		t.Fatalf("lookup: %v %v", id, err)
	}
	if _, err := tenants.LookupSubdomain(ctx, "nope"); !errors.Is(err, tenant.ErrTenantNotFound) {
		t.Fatalf("unknown subdomain: %v", err)
	}
}
