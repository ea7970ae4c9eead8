package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Options selects and configures the SQL backend.
type Options struct {
	Driver string // "mysql" (default) or "sqlite"
	User   string
	Pass   string
	Host   string
	Port   string
	Name   string
	DSN    string // sqlite file DSN; ignored for mysql
}

// Open connects to the configured backend and verifies the connection.
func Open(o Options) (*sqlx.DB, error) {
	switch o.Driver {
	case "", DriverMySQL:
		return openMySQL(o)
	case DriverSQLite:
		dsn := o.DSN
		if dsn == "" {
			dsn = "file:rentdesk.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
		db, err := sqlx.Open(DriverSQLite, dsn)
		if err != nil {
			return nil, err
		}
		// sqlite allows one writer; a single connection turns lock
		// contention into pool waits bounded by the caller's context
		db.SetMaxOpenConns(1)
		return db, ping(db)
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", o.Driver)
}

func openMySQL(o Options) (*sqlx.DB, error) {
	auth := o.User
	if o.Pass != "" {
		auth = fmt.Sprintf("%s:%s", o.User, o.Pass)
	}
	// parseTime=true -> DATE/DATETIME -> time.Time | loc=UTC keeps times consistent
	// clientFoundRows=true -> RowsAffected counts matched rows, not changed rows
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		auth, o.Host, o.Port, o.Name)

	db, err := sqlx.Open(DriverMySQL, dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, ping(db)
}

func ping(db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	return nil
}

// TxOptions returns the isolation the booking transactions run with.
// MySQL uses READ COMMITTED so reads after a row lock see the latest
// committed bookings; sqlite serialises writers on its own.
func TxOptions(db *sqlx.DB) *sql.TxOptions {
	if db.DriverName() == DriverMySQL {
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return nil
}
