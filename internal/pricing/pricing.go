// Package pricing computes rental prices from tiered, seasonal plans.
//
// All money is fixed-point (shopspring/decimal). A plan prices a period by
// one of three regimes, chosen by its length in whole calendar months:
// annual (at or beyond YearThreshold), monthly (at or beyond MonthThreshold)
// or daily brackets. Totals are rounded half-up to Scale decimals.
package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoTier is returned when no bracket covers the rental length.
	ErrNoTier = errors.New("no pricing tier covers the rental length")
	// ErrInvalidPlan wraps every Validate failure.
	ErrInvalidPlan = errors.New("invalid pricing plan")
)

// DefaultScale is the number of decimals of the smallest currency unit.
const DefaultScale int32 = 2

type Season int

const (
	HighSeason Season = iota
	LowSeason
)

func (s Season) String() string {
	if s == LowSeason {
		return "low"
	}
	return "high"
}

// Regime names the pricing regime a quote was computed under.
type Regime string

const (
	RegimeDaily   Regime = "daily"
	RegimeMonthly Regime = "monthly"
	RegimeAnnual  Regime = "annual"
)

// Tier is a daily-rate bracket covering MinDays..MaxDays inclusive.
// MaxDays of zero leaves the bracket open ended.
type Tier struct {
	MinDays       int              `json:"min_days"`
	MaxDays       int              `json:"max_days"`
	Rate          decimal.Decimal  `json:"rate"`
	LowSeasonRate *decimal.Decimal `json:"low_season_rate,omitempty"`
}

func (t Tier) covers(days int) bool {
	return days >= t.MinDays && (t.MaxDays == 0 || days <= t.MaxDays)
}

// Plan is the pricing configuration of one item.
type Plan struct {
	Tiers               []Tier
	MonthlyRate         decimal.Decimal
	AnnualRate          decimal.Decimal
	MonthThreshold      int
	YearThreshold       int
	LowSeasonMultiplier decimal.Decimal
	LowSeasonMonths     []time.Month
	Scale               int32
}

// Flat returns the plan used for items without a configured one: a single
// open bracket at the given daily rate.
func Flat(daily decimal.Decimal) Plan {
	return Plan{Tiers: []Tier{{MinDays: 1, Rate: daily}}, Scale: DefaultScale}
}

// Line is one billed component of a quote.
type Line struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitRate    decimal.Decimal `json:"unit_rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// Quote is the priced result for a period.
type Quote struct {
	Regime   Regime          `json:"regime"`
	Season   string          `json:"season"`
	Duration Duration        `json:"-"`
	Lines    []Line          `json:"lines"`
	Total    decimal.Decimal `json:"total"`
}

// Validate checks the plan for overlapping or malformed brackets.
func (p Plan) Validate() error {
	if msg := p.problem(); msg != "" {
		return fmt.Errorf("%w: %s", ErrInvalidPlan, msg)
	}
	return nil
}

func (p Plan) problem() string {
	for i, t := range p.Tiers {
		if t.MinDays < 1 {
			return fmt.Sprintf("tier %d: min_days must be at least 1", i)
		}
		if t.MaxDays != 0 && t.MaxDays < t.MinDays {
			return fmt.Sprintf("tier %d: max_days below min_days", i)
		}
		if t.Rate.IsNegative() || (t.LowSeasonRate != nil && t.LowSeasonRate.IsNegative()) {
			return fmt.Sprintf("tier %d: negative rate", i)
		}
		for j := i + 1; j < len(p.Tiers); j++ {
			if overlaps(t, p.Tiers[j]) {
				return fmt.Sprintf("tiers %d and %d overlap", i, j)
			}
		}
	}
	if p.MonthlyRate.IsNegative() || p.AnnualRate.IsNegative() {
		return "negative monthly or annual rate"
	}
	if p.LowSeasonMultiplier.IsNegative() || p.LowSeasonMultiplier.GreaterThan(decimal.NewFromInt(1)) {
		return "low season multiplier must be within [0, 1]"
	}
	for _, m := range p.LowSeasonMonths {
		if m < time.January || m > time.December {
			return fmt.Sprintf("invalid low season month %d", m)
		}
	}
	if p.Scale < 0 || p.Scale > 4 {
		return "scale must be within [0, 4]"
	}
	return ""
}

func overlaps(a, b Tier) bool {
	aMax, bMax := a.MaxDays, b.MaxDays
	if aMax == 0 {
		aMax = int(^uint(0) >> 1)
	}
	if bMax == 0 {
		bMax = int(^uint(0) >> 1)
	}
	return a.MinDays <= bMax && b.MinDays <= aMax
}

// SeasonFor reports the season a rental starting on date falls in.
func (p Plan) SeasonFor(date time.Time) Season {
	m := date.UTC().Month()
	for _, low := range p.LowSeasonMonths {
		if low == m {
			return LowSeason
		}
	}
	return HighSeason
}

// Price quotes the period [start, end) with the season of its start date.
func (p Plan) Price(start, end time.Time) (Quote, error) {
	d, err := DurationBetween(start, end)
	if err != nil {
		return Quote{}, err
	}
	return p.Quote(d, p.SeasonFor(start))
}

// Quote prices a measured duration.
func (p Plan) Quote(d Duration, season Season) (Quote, error) {
	if d.Days <= 0 {
		return Quote{}, ErrInvalidDuration
	}
	scale := p.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	// a trailing partial month is billed as a full one
	billed := d.Months
	if d.ExtraDays > 0 {
		billed++
	}

	q := Quote{Season: season.String(), Duration: d}
	switch {
	case p.YearThreshold > 0 && p.AnnualRate.IsPositive() && d.Months >= p.YearThreshold:
		q.Regime = RegimeAnnual
		years := billed / 12
		if years < 1 {
			years = 1
		}
		q.Lines = append(q.Lines, line("year", years, p.AnnualRate))
		if rem := billed - years*12; rem > 0 {
			monthly := p.MonthlyRate
			if !monthly.IsPositive() {
				monthly = p.AnnualRate.Div(decimal.NewFromInt(12))
			}
			q.Lines = append(q.Lines, line("month", rem, monthly))
		}
	case p.MonthThreshold > 0 && p.MonthlyRate.IsPositive() && d.Months >= p.MonthThreshold:
		q.Regime = RegimeMonthly
		q.Lines = append(q.Lines, line("month", billed, p.MonthlyRate))
	default:
		tier, ok := p.tierFor(d.Days)
		if !ok {
			return Quote{}, fmt.Errorf("%d days: %w", d.Days, ErrNoTier)
		}
		q.Regime = RegimeDaily
		q.Lines = append(q.Lines, line("day", d.Days, p.dailyRate(tier, season)))
	}

	total := decimal.Zero
	for i := range q.Lines {
		q.Lines[i].Amount = q.Lines[i].Amount.Round(scale)
		total = total.Add(q.Lines[i].Amount)
	}
	q.Total = total.Round(scale)
	return q, nil
}

func (p Plan) tierFor(days int) (Tier, bool) {
	for _, t := range p.Tiers {
		if t.covers(days) {
			return t, true
		}
	}
	return Tier{}, false
}

// dailyRate prefers an explicit low-season rate over the plan multiplier.
func (p Plan) dailyRate(t Tier, season Season) decimal.Decimal {
	if season != LowSeason {
		return t.Rate
	}
	if t.LowSeasonRate != nil {
		return *t.LowSeasonRate
	}
	m := p.LowSeasonMultiplier
	if m.IsPositive() && m.LessThanOrEqual(decimal.NewFromInt(1)) {
		return t.Rate.Mul(m)
	}
	return t.Rate
}

func line(unit string, qty int, rate decimal.Decimal) Line {
	return Line{
		Description: unit,
		Quantity:    qty,
		UnitRate:    rate,
		Amount:      rate.Mul(decimal.NewFromInt(int64(qty))),
	}
}
