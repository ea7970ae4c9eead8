package model

import (
	"database/sql/driver"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentdesk/internal/pricing"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

// TierList is the JSON encoded bracket table of a pricing plan.
type TierList []pricing.Tier

func (l TierList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue(l)
}

func (l *TierList) Scan(src any) error {
	*l = TierList{}
	return scanJSON(src, l)
}

// MonthList is a comma separated list of month numbers ("1,2,11").
type MonthList []time.Month

func (l MonthList) Value() (driver.Value, error) {
	parts := make([]string, 0, len(l))
	for _, m := range l {
		parts = append(parts, strconv.Itoa(int(m)))
	}
	return strings.Join(parts, ","), nil
}

func (l *MonthList) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
	case string:
		s = v
	case []byte:
		s = string(v)
	}
	out := MonthList{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return err
		}
		out = append(out, time.Month(n))
	}
	*l = out
	return nil
}

// PricingPlan is the stored pricing configuration of one item.
type PricingPlan struct {
	ItemID              uint64          `db:"item_id" json:"item_id"`
	TenantID            tenant.ID       `db:"tenant_id" json:"-"`
	Tiers               TierList        `db:"tiers" json:"tiers"`
	MonthlyRate         decimal.Decimal `db:"monthly_rate" json:"monthly_rate"`
	AnnualRate          decimal.Decimal `db:"annual_rate" json:"annual_rate"`
	MonthThreshold      int             `db:"month_threshold" json:"month_threshold"`
	YearThreshold       int             `db:"year_threshold" json:"year_threshold"`
	LowSeasonMultiplier decimal.Decimal `db:"low_season_multiplier" json:"low_season_multiplier"`
	LowSeasonMonths     MonthList       `db:"low_season_months" json:"low_season_months"`
	Scale               int32           `db:"scale" json:"scale"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// Plan converts the stored row into a pricing.Plan.
func (p PricingPlan) Plan() pricing.Plan {
	return pricing.Plan{
		Tiers:               []pricing.Tier(p.Tiers),
		MonthlyRate:         p.MonthlyRate,
		AnnualRate:          p.AnnualRate,
		MonthThreshold:      p.MonthThreshold,
		YearThreshold:       p.YearThreshold,
		LowSeasonMultiplier: p.LowSeasonMultiplier,
		LowSeasonMonths:     []time.Month(p.LowSeasonMonths),
		Scale:               p.Scale,
	}
}
