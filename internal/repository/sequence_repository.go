package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/rentdesk/internal/database"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

// SequenceRepo stores per-tenant document counters keyed by
// (tenant, prefix, year).
type SequenceRepo struct{ db *sqlx.DB }

func NewSequenceRepo(db *sqlx.DB) *SequenceRepo { return &SequenceRepo{db: db} }

func (r *SequenceRepo) DB() *sqlx.DB { return r.db }

// LockTx reads the counter with a row lock. found is false when the
// counter has not been started yet.
func (r *SequenceRepo) LockTx(ctx context.Context, tx *sqlx.Tx, tid tenant.ID, prefix string, year int) (last uint64, found bool, err error) {
	if err := requireTenant(tid); err != nil {
		return 0, false, err
	}
	err = tx.GetContext(ctx, &last, "SELECT last_value FROM document_sequences WHERE tenant_id = ? AND prefix = ? AND year = ?"+database.ForUpdate(tx),
		uint64(tid), prefix, year)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return last, true, nil
}

// StartTx creates the counter at 1. A concurrent start yields ErrDuplicate.
func (r *SequenceRepo) StartTx(ctx context.Context, tx *sqlx.Tx, tid tenant.ID, prefix string, year int) error {
	_, err := tx.ExecContext(ctx, "INSERT INTO document_sequences (tenant_id, prefix, year, last_value, updated_at) VALUES (?, ?, ?, 1, ?)",
		uint64(tid), prefix, year, time.Now().UTC())
	if database.IsDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// AdvanceTx moves the counter from last to last+1. It reports false when
// the counter no longer holds last.
func (r *SequenceRepo) AdvanceTx(ctx context.Context, tx *sqlx.Tx, tid tenant.ID, prefix string, year int, last uint64) (bool, error) {
	res, err := tx.ExecContext(ctx, "UPDATE document_sequences SET last_value = ?, updated_at = ? WHERE tenant_id = ? AND prefix = ? AND year = ? AND last_value = ?",
		last+1, time.Now().UTC(), uint64(tid), prefix, year, last)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
