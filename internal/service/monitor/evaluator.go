// Package monitor runs the exit engine: a fixed-interval loop that
// fetches market snapshots, evaluates every active intent against its
// triggers, hands fired triggers to the execution gateway, and persists
// the mutated set once per pass.
package monitor

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/intent"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/market"
)

// Trigger is one fired exit decision with its resolved sell size
type Trigger struct {
	Kind     intent.TriggerKind
	Level    int             // TP ordinal, 0 for stops
	Price    decimal.Decimal // threshold that was crossed
	Quantity decimal.Decimal // sell size at decision time
	Reason   string
}

// Evaluation is the result of one pure evaluation of one intent.
// Nothing is mutated: the caller applies trailing updates and fills
// on its own control path, after execution confirms.
type Evaluation struct {
	Triggers []Trigger

	// Trailing high-water mark movement, applied even when no trigger
	// fires and even on log-only intents
	TrailingUpdated bool
	NewHighestPrice decimal.Decimal
	NewCurrentStop  decimal.Decimal

	// AutoClose reports the remaining quantity was already at or under
	// the dust threshold before any trigger logic ran
	AutoClose bool
}

// Fired checks whether anything needs executing
func (e *Evaluation) Fired() bool {
	return len(e.Triggers) > 0
}

// TriggerEvaluator decides which triggers fire for an intent given one
// market snapshot. Pure: same inputs, same decisions.
type TriggerEvaluator struct {
	dust decimal.Decimal
}

// NewTriggerEvaluator creates an evaluator. Remaining quantities at or
// under dust count as fully exited.
func NewTriggerEvaluator(dust decimal.Decimal) *TriggerEvaluator {
	return &TriggerEvaluator{dust: dust}
}

// Evaluate runs the fixed priority order for one intent:
//
//  1. Trailing high-water mark update (ratchet only upward)
//  2. Unfilled take-profit levels, ascending; several may fire on a
//     gap-up, each sized from the original quantity
//  3. Stop-loss on everything remaining
//  4. Trailing stop on everything remaining; stop-loss and trailing
//     are mutually terminal, at most one fires
//  5. Time stop, forcing a full exit of whatever remains
func (e *TriggerEvaluator) Evaluate(it *intent.ExitIntent, snap *market.Snapshot, now time.Time) Evaluation {
	var eval Evaluation

	if !it.IsActive() || snap == nil || !snap.HasPrice() {
		return eval
	}

	remaining := it.RemainingQuantity
	if remaining.LessThanOrEqual(e.dust) {
		eval.AutoClose = true
		return eval
	}

	price := snap.Price

	// 1. Trailing high-water mark: only upward, updated before any
	// fire check so a new high can never trip its own stop
	if ts := it.TrailingStop; ts != nil && ts.Active {
		eval.NewHighestPrice = ts.HighestPrice
		eval.NewCurrentStop = ts.CurrentStop
		if price.GreaterThan(ts.HighestPrice) {
			eval.NewHighestPrice = price
			if stop := intent.StopFromHigh(price, ts.TrailPct); stop.GreaterThan(ts.CurrentStop) {
				eval.NewCurrentStop = stop
			}
			eval.TrailingUpdated = true
		}
	}

	// 2. Take-profit ladder, ascending; filled levels never re-fire
	for _, tp := range it.TakeProfits {
		if tp.Filled || price.LessThan(tp.Price) {
			continue
		}
		qty := sizeOf(it.OriginalQuantity, tp.SizePct)
		if qty.GreaterThan(remaining) {
			qty = remaining
		}
		if !qty.IsPositive() {
			continue
		}

		eval.Triggers = append(eval.Triggers, Trigger{
			Kind:     intent.KindTakeProfit,
			Level:    tp.Level,
			Price:    tp.Price,
			Quantity: qty,
			Reason:   fmt.Sprintf("price %s >= tp%d target %s", price, tp.Level, tp.Price),
		})
		remaining = remaining.Sub(qty)
	}

	// 3. Stop-loss: everything remaining after this pass's TP fills
	stopFired := false
	if sl := it.StopLoss; sl != nil && remaining.GreaterThan(e.dust) && price.LessThanOrEqual(sl.Price) {
		eval.Triggers = append(eval.Triggers, Trigger{
			Kind:     intent.KindStopLoss,
			Price:    sl.Price,
			Quantity: remaining,
			Reason:   fmt.Sprintf("price %s <= stop %s", price, sl.Price),
		})
		remaining = decimal.Zero
		stopFired = true
	}

	// 4. Trailing stop, skipped when the stop-loss already took the
	// remainder (mutual terminality)
	if ts := it.TrailingStop; ts != nil && ts.Active && !stopFired && remaining.GreaterThan(e.dust) {
		currentStop := ts.CurrentStop
		if eval.TrailingUpdated {
			currentStop = eval.NewCurrentStop
		}
		if price.LessThanOrEqual(currentStop) {
			eval.Triggers = append(eval.Triggers, Trigger{
				Kind:     intent.KindTrailingStop,
				Price:    currentStop,
				Quantity: remaining,
				Reason:   fmt.Sprintf("price %s <= trailing stop %s (high %s)", price, currentStop, ts.HighestPrice),
			})
			remaining = decimal.Zero
		}
	}

	// 5. Time stop: fires past the deadline no matter what else
	// happened, as long as anything is left to exit
	if tstop := it.TimeStop; tstop != nil && !tstop.Triggered && !now.Before(tstop.Deadline) && remaining.GreaterThan(e.dust) {
		eval.Triggers = append(eval.Triggers, Trigger{
			Kind:     intent.KindTimeStop,
			Price:    price,
			Quantity: remaining,
			Reason:   fmt.Sprintf("deadline %s passed", tstop.Deadline.Format(time.RFC3339)),
		})
	}

	if eval.Fired() {
		log.Debug().
			Str("intent_id", it.ID).
			Str("symbol", it.Symbol).
			Str("price", price.String()).
			Int("triggers", len(eval.Triggers)).
			Msg("Triggers fired")
	}

	return eval
}

// sizeOf computes pct percent of qty
func sizeOf(qty, pct decimal.Decimal) decimal.Decimal {
	return qty.Mul(pct).Div(decimal.NewFromInt(100))
}
