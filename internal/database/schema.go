package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Money columns are DECIMAL on MySQL and TEXT on sqlite; both round-trip
// through decimal.Decimal without float conversion.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(200) NOT NULL,
		subdomain VARCHAR(63) NOT NULL,
		currency CHAR(3) NOT NULL DEFAULT 'EUR',
		invoice_prefix VARCHAR(10) NOT NULL DEFAULT 'INV',
		payment_terms_days INT NOT NULL DEFAULT 14,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE KEY uq_tenants_subdomain (subdomain)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS items (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		tenant_id BIGINT UNSIGNED NOT NULL,
		type VARCHAR(20) NOT NULL,
		name VARCHAR(200) NOT NULL,
		base_price DECIMAL(12,2) NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
		attributes JSON NOT NULL,
		photos JSON NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		KEY idx_items_tenant_type (tenant_id, type),
		CONSTRAINT fk_items_tenant FOREIGN KEY (tenant_id) REFERENCES tenants(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS customers (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		tenant_id BIGINT UNSIGNED NOT NULL,
		natural_key VARCHAR(64) NOT NULL,
		name VARCHAR(200) NOT NULL,
		email VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(40) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE KEY uq_customers_tenant_key (tenant_id, natural_key),
		CONSTRAINT fk_customers_tenant FOREIGN KEY (tenant_id) REFERENCES tenants(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		tenant_id BIGINT UNSIGNED NOT NULL,
		item_id BIGINT UNSIGNED NOT NULL,
		customer_id BIGINT UNSIGNED NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		status VARCHAR(20) NOT NULL,
		total_price DECIMAL(12,2) NOT NULL,
		deposit DECIMAL(12,2) NOT NULL DEFAULT 0,
		notes TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		KEY idx_bookings_item_range (tenant_id, item_id, start_date, end_date),
		KEY idx_bookings_customer (tenant_id, customer_id),
		CONSTRAINT fk_bookings_item FOREIGN KEY (item_id) REFERENCES items(id),
		CONSTRAINT fk_bookings_customer FOREIGN KEY (customer_id) REFERENCES customers(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS booking_slots (
		item_id BIGINT UNSIGNED NOT NULL,
		day DATE NOT NULL,
		tenant_id BIGINT UNSIGNED NOT NULL,
		booking_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (item_id, day),
		KEY idx_slots_booking (booking_id),
		CONSTRAINT fk_slots_booking FOREIGN KEY (booking_id) REFERENCES bookings(id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		tenant_id BIGINT UNSIGNED NOT NULL,
		booking_id BIGINT UNSIGNED NOT NULL,
		number VARCHAR(32) NOT NULL,
		amount DECIMAL(12,2) NOT NULL,
		currency CHAR(3) NOT NULL,
		issue_date DATE NOT NULL,
		due_date DATE NOT NULL,
		payment_status VARCHAR(10) NOT NULL DEFAULT 'UNPAID',
		paid_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE KEY uq_invoices_booking (booking_id),
		UNIQUE KEY uq_invoices_number (tenant_id, number),
		CONSTRAINT fk_invoices_booking FOREIGN KEY (booking_id) REFERENCES bookings(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS document_sequences (
		tenant_id BIGINT UNSIGNED NOT NULL,
		prefix VARCHAR(10) NOT NULL,
		year INT NOT NULL,
		last_value BIGINT UNSIGNED NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (tenant_id, prefix, year)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS pricing_plans (
		item_id BIGINT UNSIGNED PRIMARY KEY,
		tenant_id BIGINT UNSIGNED NOT NULL,
		tiers JSON NOT NULL,
		monthly_rate DECIMAL(12,2) NOT NULL DEFAULT 0,
		annual_rate DECIMAL(12,2) NOT NULL DEFAULT 0,
		month_threshold INT NOT NULL DEFAULT 0,
		year_threshold INT NOT NULL DEFAULT 0,
		low_season_multiplier DECIMAL(5,4) NOT NULL DEFAULT 0,
		low_season_months VARCHAR(40) NOT NULL DEFAULT '',
		scale INT NOT NULL DEFAULT 2,
		updated_at DATETIME NOT NULL,
		KEY idx_plans_tenant (tenant_id),
		CONSTRAINT fk_plans_item FOREIGN KEY (item_id) REFERENCES items(id)
	) ENGINE=InnoDB`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		subdomain TEXT NOT NULL UNIQUE,
		currency TEXT NOT NULL DEFAULT 'EUR',
		invoice_prefix TEXT NOT NULL DEFAULT 'INV',
		payment_terms_days INTEGER NOT NULL DEFAULT 14,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id INTEGER NOT NULL REFERENCES tenants(id),
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		base_price TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		attributes TEXT NOT NULL DEFAULT '{}',
		photos TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_tenant_type ON items(tenant_id, type)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id INTEGER NOT NULL REFERENCES tenants(id),
		natural_key TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (tenant_id, natural_key)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL REFERENCES items(id),
		customer_id INTEGER NOT NULL REFERENCES customers(id),
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		status TEXT NOT NULL,
		total_price TEXT NOT NULL,
		deposit TEXT NOT NULL DEFAULT '0',
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_item_range ON bookings(tenant_id, item_id, start_date, end_date)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_customer ON bookings(tenant_id, customer_id)`,
	`CREATE TABLE IF NOT EXISTS booking_slots (
		item_id INTEGER NOT NULL,
		day DATE NOT NULL,
		tenant_id INTEGER NOT NULL,
		booking_id INTEGER NOT NULL REFERENCES bookings(id),
		PRIMARY KEY (item_id, day)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_slots_booking ON booking_slots(booking_id)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id INTEGER NOT NULL,
		booking_id INTEGER NOT NULL UNIQUE REFERENCES bookings(id),
		number TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		issue_date DATE NOT NULL,
		due_date DATE NOT NULL,
		payment_status TEXT NOT NULL DEFAULT 'UNPAID',
		paid_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (tenant_id, number)
	)`,
	`CREATE TABLE IF NOT EXISTS document_sequences (
		tenant_id INTEGER NOT NULL,
		prefix TEXT NOT NULL,
		year INTEGER NOT NULL,
		last_value INTEGER NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (tenant_id, prefix, year)
	)`,
	`CREATE TABLE IF NOT EXISTS pricing_plans (
		item_id INTEGER PRIMARY KEY REFERENCES items(id),
		tenant_id INTEGER NOT NULL,
		tiers TEXT NOT NULL DEFAULT '[]',
		monthly_rate TEXT NOT NULL DEFAULT '0',
		annual_rate TEXT NOT NULL DEFAULT '0',
		month_threshold INTEGER NOT NULL DEFAULT 0,
		year_threshold INTEGER NOT NULL DEFAULT 0,
		low_season_multiplier TEXT NOT NULL DEFAULT '0',
		low_season_months TEXT NOT NULL DEFAULT '',
		scale INTEGER NOT NULL DEFAULT 2,
		updated_at DATETIME NOT NULL
	)`,
}

// Migrate creates the schema when missing. It is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts := mysqlSchema
	if db.DriverName() == DriverSQLite {
		stmts = sqliteSchema
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
