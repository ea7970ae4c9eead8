// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/rentdesk/internal/database"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

// Open returns a fresh in-memory sqlite database with the full schema.
// Every connection to ":memory:" is a separate database, so the pool is
// pinned to one connection.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open(database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Tenant inserts a tenant and returns its id.
func Tenant(t testing.TB, db *sqlx.DB, subdomain string) tenant.ID {
	t.Helper()
	now := time.Now().UTC()
	res, err := db.Exec(`INSERT INTO tenants (name, subdomain, currency, invoice_prefix, payment_terms_days, created_at, updated_at)
		VALUES (?, ?, 'EUR', 'INV', 14, ?, ?)`, subdomain, subdomain, now, now)
	if err != nil {
		t.Fatalf("insert tenant: %v", err)
	}
	id, _ := res.LastInsertId()
	return tenant.ID(id)
}

// Item inserts an active item with the given daily price.
func Item(t testing.TB, db *sqlx.DB, tid tenant.ID, name, basePrice string) uint64 {
	t.Helper()
	now := time.Now().UTC()
	res, err := db.Exec(`INSERT INTO items (tenant_id, type, name, base_price, status, attributes, photos, created_at, updated_at)
		VALUES (?, 'vehicle', ?, ?, 'ACTIVE', '{}', '[]', ?, ?)`, uint64(tid), name, basePrice, now, now)
	if err != nil {
		t.Fatalf("insert item: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

// Customer inserts a customer keyed by naturalKey.
func Customer(t testing.TB, db *sqlx.DB, tid tenant.ID, naturalKey string) uint64 {
	t.Helper()
	now := time.Now().UTC()
	res, err := db.Exec(`INSERT INTO customers (tenant_id, natural_key, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`, uint64(tid), naturalKey, naturalKey, now, now)
	if err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}
