package database

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, so repository methods
// run unchanged inside and outside a transaction.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// ForUpdate returns the row locking suffix for the backend behind q.
// sqlite has no row locks; its single writer already serialises.
func ForUpdate(q Querier) string {
	if q.DriverName() == DriverMySQL {
		return " FOR UPDATE"
	}
	return ""
}

// InTx runs fn in a transaction and commits when it returns nil.
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, TxOptions(db))
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
