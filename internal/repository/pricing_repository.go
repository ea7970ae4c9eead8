package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/rentdesk/internal/database"
	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

const planCols = "item_id, tenant_id, tiers, monthly_rate, annual_rate, month_threshold, year_threshold, low_season_multiplier, low_season_months, scale, updated_at"

// PricingPlanRepo stores one pricing plan per item.
type PricingPlanRepo struct{ db *sqlx.DB }

func NewPricingPlanRepo(db *sqlx.DB) *PricingPlanRepo { return &PricingPlanRepo{db: db} }

// Put replaces the plan of an item owned by tid.
func (r *PricingPlanRepo) Put(ctx context.Context, tid tenant.ID, p *model.PricingPlan) error {
	if err := requireTenant(tid); err != nil {
		return err
	}
	p.TenantID = tid
	p.UpdatedAt = time.Now().UTC()
	return database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var it model.Item
		if err := getScoped(ctx, tx, &it, "items", itemCols, p.ItemID, tid, true); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM pricing_plans WHERE item_id = ? AND tenant_id = ?", p.ItemID, uint64(tid)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO pricing_plans (item_id, tenant_id, tiers, monthly_rate, annual_rate, month_threshold, year_threshold, low_season_multiplier, low_season_months, scale, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ItemID, uint64(tid), p.Tiers, p.MonthlyRate, p.AnnualRate, p.MonthThreshold, p.YearThreshold,
			p.LowSeasonMultiplier, p.LowSeasonMonths, p.Scale, p.UpdatedAt)
		return err
	})
}

func (r *PricingPlanRepo) Get(ctx context.Context, tid tenant.ID, itemID uint64) (*model.PricingPlan, error) {
	return r.GetTx(ctx, r.db, tid, itemID)
}

// GetTx returns the plan of an item, or ErrNotFound when it has none.
func (r *PricingPlanRepo) GetTx(ctx context.Context, q database.Querier, tid tenant.ID, itemID uint64) (*model.PricingPlan, error) {
	if err := requireTenant(tid); err != nil {
		return nil, err
	}
	var p model.PricingPlan
	err := q.GetContext(ctx, &p, "SELECT "+planCols+" FROM pricing_plans WHERE item_id = ? AND tenant_id = ?", itemID, uint64(tid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
