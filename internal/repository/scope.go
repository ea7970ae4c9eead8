package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/iliyamo/rentdesk/internal/database"
	"github.com/iliyamo/rentdesk/internal/logger"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

func requireTenant(tid tenant.ID) error {
	if tid == 0 {
		return ErrTenantRequired
	}
	return nil
}

// miss turns a keyed lookup that found nothing for tid into ErrNotFound.
// When the key exists under a different tenant the attempt is logged as a
// security event; the caller still only sees ErrNotFound.
func miss(ctx context.Context, q database.Querier, table string, id uint64, tid tenant.ID) error {
	var owner uint64
	err := sqlx.GetContext(ctx, q, &owner, "SELECT tenant_id FROM "+table+" WHERE id = ?", id)
	if err == nil && tenant.ID(owner) != tid {
		logger.FromContext(ctx).Warn("cross-tenant access attempt",
			zap.String("event", "cross_tenant_access"),
			zap.String("table", table),
			zap.Uint64("record_id", id),
			zap.Uint64("tenant_id", uint64(tid)),
			zap.Uint64("owner_tenant_id", owner),
		)
	}
	return ErrNotFound
}

// getScoped loads one row of table by id for tid into dest.
func getScoped(ctx context.Context, q database.Querier, dest any, table, cols string, id uint64, tid tenant.ID, lock bool) error {
	if err := requireTenant(tid); err != nil {
		return err
	}
	query := "SELECT " + cols + " FROM " + table + " WHERE id = ? AND tenant_id = ?"
	if lock {
		query += database.ForUpdate(q)
	}
	err := q.GetContext(ctx, dest, query, id, uint64(tid))
	if errors.Is(err, sql.ErrNoRows) {
		return miss(ctx, q, table, id, tid)
	}
	if err != nil {
		return fmt.Errorf("get %s %d: %w", table, id, err)
	}
	return nil
}

// affected maps a zero-row update or delete to ErrNotFound.
func affected(ctx context.Context, q database.Querier, res sql.Result, table string, id uint64, tid tenant.ID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return miss(ctx, q, table, id, tid)
	}
	return nil
}

// where accumulates AND-ed predicates, always starting with the tenant.
type where struct {
	clauses []string
	args    []any
}

func tenantWhere(tid tenant.ID) *where {
	return &where{clauses: []string{"tenant_id = ?"}, args: []any{uint64(tid)}}
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

// ids restricts the result to the given primary keys, in addition to the
// tenant predicate.
func (w *where) ids(col string, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	clause, args, err := sqlx.In(col+" IN (?)", ids)
	if err != nil {
		return err
	}
	w.add(clause, args...)
	return nil
}

func (w *where) String() string { return " WHERE " + strings.Join(w.clauses, " AND ") }

func page(limit, offset int) string {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}
