package intent

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanLevel is one declarative rung: sell SizePct of the original
// quantity once price gains GainPct over entry.
type PlanLevel struct {
	GainPct decimal.Decimal `json:"gain_pct"`
	SizePct decimal.Decimal `json:"size_pct"`
}

// PlanSpec is the declarative exit plan attached to an entry.
// Zero TrailingPct disables trailing; zero TimeStopMinutes disables the
// time stop.
type PlanSpec struct {
	TakeProfits     []PlanLevel     `json:"take_profits"`
	StopLossPct     decimal.Decimal `json:"stop_loss_pct"`
	TrailingPct     decimal.Decimal `json:"trailing_pct"`
	TimeStopMinutes int             `json:"time_stop_minutes"`
}

// DefaultSpotPlan returns the conservative ladder used for ordinary
// spot entries: 60/25/15 at +8/+18/+40, stop -9%, trail 5%, 90 minutes.
func DefaultSpotPlan() PlanSpec {
	return PlanSpec{
		TakeProfits: []PlanLevel{
			{GainPct: decimal.NewFromInt(8), SizePct: decimal.NewFromInt(60)},
			{GainPct: decimal.NewFromInt(18), SizePct: decimal.NewFromInt(25)},
			{GainPct: decimal.NewFromInt(40), SizePct: decimal.NewFromInt(15)},
		},
		StopLossPct:     decimal.NewFromInt(9),
		TrailingPct:     decimal.NewFromInt(5),
		TimeStopMinutes: 90,
	}
}

// AggressivePlan returns the wide ladder for high-conviction entries:
// 60/25/15 at +50/+100/+200, stop -15%, no trailing, no time stop.
func AggressivePlan() PlanSpec {
	return PlanSpec{
		TakeProfits: []PlanLevel{
			{GainPct: decimal.NewFromInt(50), SizePct: decimal.NewFromInt(60)},
			{GainPct: decimal.NewFromInt(100), SizePct: decimal.NewFromInt(25)},
			{GainPct: decimal.NewFromInt(200), SizePct: decimal.NewFromInt(15)},
		},
		StopLossPct: decimal.NewFromInt(15),
	}
}

// BuildParams carries everything the builder needs from the entry
type BuildParams struct {
	PositionID  string
	TokenMint   string
	Symbol      string
	EntryPrice  decimal.Decimal
	Quantity    decimal.Decimal
	AutoExecute bool
	Notes       string
	Plan        PlanSpec
}

// Build resolves a declarative plan into a persisted-ready ExitIntent
// with absolute trigger prices. Pure construction: the caller must
// persist the result before the entry is considered intent-safe.
func Build(p BuildParams, now time.Time) (*ExitIntent, error) {
	if err := validatePlan(p); err != nil {
		return nil, err
	}

	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)

	// Resolve ladder ascending by gain, ordinals 1-based
	levels := make([]PlanLevel, len(p.Plan.TakeProfits))
	copy(levels, p.Plan.TakeProfits)
	sort.Slice(levels, func(a, b int) bool {
		return levels[a].GainPct.LessThan(levels[b].GainPct)
	})

	tps := make([]TakeProfitLevel, 0, len(levels))
	for idx, lv := range levels {
		tps = append(tps, TakeProfitLevel{
			Level:   idx + 1,
			Price:   p.EntryPrice.Mul(one.Add(lv.GainPct.Div(hundred))),
			SizePct: lv.SizePct,
		})
	}

	slPrice := p.EntryPrice.Mul(one.Sub(p.Plan.StopLossPct.Div(hundred)))
	it := &ExitIntent{
		ID:                uuid.New().String(),
		PositionID:        p.PositionID,
		TokenMint:         p.TokenMint,
		Symbol:            p.Symbol,
		EntryPrice:        p.EntryPrice,
		EntryTimestamp:    now,
		OriginalQuantity:  p.Quantity,
		RemainingQuantity: p.Quantity,
		Status:            StatusActive,
		TakeProfits:       tps,
		StopLoss: &StopLoss{
			Price:         slPrice,
			SizePct:       decimal.NewFromInt(100),
			OriginalPrice: slPrice,
		},
		AutoExecute: p.AutoExecute,
		Notes:       p.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if p.Plan.TrailingPct.IsPositive() {
		it.TrailingStop = &TrailingStop{
			Active:       true,
			TrailPct:     p.Plan.TrailingPct,
			HighestPrice: p.EntryPrice,
			CurrentStop:  StopFromHigh(p.EntryPrice, p.Plan.TrailingPct),
		}
	}

	if p.Plan.TimeStopMinutes > 0 {
		it.TimeStop = &TimeStop{
			Deadline: now.Add(time.Duration(p.Plan.TimeStopMinutes) * time.Minute),
			Action:   ActionExitFully,
		}
	}

	return it, nil
}

// validatePlan rejects unbuildable plans before any resolution happens
func validatePlan(p BuildParams) error {
	if !p.EntryPrice.IsPositive() {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, ErrNonPositiveEntry)
	}
	if !p.Quantity.IsPositive() {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, ErrNonPositiveQty)
	}
	if p.TokenMint == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, ErrMissingMint)
	}

	hundred := decimal.NewFromInt(100)
	total := decimal.Zero
	for _, lv := range p.Plan.TakeProfits {
		if !lv.GainPct.IsPositive() {
			return fmt.Errorf("%w: take-profit gain %s must be positive", ErrInvalidPlan, lv.GainPct)
		}
		if !lv.SizePct.IsPositive() {
			return fmt.Errorf("%w: take-profit size %s must be positive", ErrInvalidPlan, lv.SizePct)
		}
		total = total.Add(lv.SizePct)
	}
	if total.GreaterThan(hundred) {
		return fmt.Errorf("%w: %w (%s%%)", ErrInvalidPlan, ErrLadderOversized, total)
	}

	if !p.Plan.StopLossPct.IsPositive() || p.Plan.StopLossPct.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("%w: stop-loss pct %s out of range (0,100)", ErrInvalidPlan, p.Plan.StopLossPct)
	}
	if p.Plan.TrailingPct.IsNegative() || p.Plan.TrailingPct.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("%w: trailing pct %s out of range [0,100)", ErrInvalidPlan, p.Plan.TrailingPct)
	}
	if p.Plan.TimeStopMinutes < 0 {
		return fmt.Errorf("%w: time stop minutes %d negative", ErrInvalidPlan, p.Plan.TimeStopMinutes)
	}
	return nil
}
