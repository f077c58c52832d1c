package intent

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of an exit intent
type Status string

const (
	StatusActive    Status = "active"    // monitored every pass
	StatusClosed    Status = "closed"    // remaining quantity exhausted or terminal trigger executed
	StatusCancelled Status = "cancelled" // withdrawn by the operator
)

// IsValid checks if status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusClosed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal checks if status permits no further evaluation
func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// TriggerKind identifies which rule fired
type TriggerKind string

const (
	KindTakeProfit   TriggerKind = "take_profit"
	KindStopLoss     TriggerKind = "stop_loss"
	KindTrailingStop TriggerKind = "trailing_stop"
	KindTimeStop     TriggerKind = "time_stop"
)

// TimeStopAction is what a fired time stop does with the position
type TimeStopAction string

const (
	// ActionExitFully closes whatever quantity remains
	ActionExitFully TimeStopAction = "exit_fully"
)

// TakeProfitLevel is one rung of the take-profit ladder.
// Levels are ordered ascending by price; a filled level never re-fires.
type TakeProfitLevel struct {
	Level    int             `json:"level"`    // ordinal, 1-based
	Price    decimal.Decimal `json:"price"`    // absolute target (USD)
	SizePct  decimal.Decimal `json:"size_pct"` // % of original quantity to sell
	Filled   bool            `json:"filled"`
	FilledAt *time.Time      `json:"filled_at,omitempty"`
}

// StopLoss closes the remaining quantity when price falls to Price.
// OriginalPrice is retained for audit when Price is later ratcheted.
type StopLoss struct {
	Price         decimal.Decimal `json:"price"`
	SizePct       decimal.Decimal `json:"size_pct"` // % of remaining, normally 100
	Adjusted      bool            `json:"adjusted"`
	OriginalPrice decimal.Decimal `json:"original_price"`
}

// TrailingStop ratchets CurrentStop upward as HighestPrice rises.
// CurrentStop = HighestPrice * (1 - TrailPct/100), never lowered.
type TrailingStop struct {
	Active       bool            `json:"active"`
	TrailPct     decimal.Decimal `json:"trail_pct"`
	HighestPrice decimal.Decimal `json:"highest_price"`
	CurrentStop  decimal.Decimal `json:"current_stop"`
}

// TimeStop force-exits the remaining quantity at Deadline
type TimeStop struct {
	Deadline  time.Time      `json:"deadline"`
	Action    TimeStopAction `json:"action"`
	Triggered bool           `json:"triggered"`
}

// ExitIntent is the complete exit plan attached to one open position.
// Created at trade entry, before the entry transaction is final, so no
// position is ever untracked. Mutated only on the monitor's control path.
type ExitIntent struct {
	ID         string `json:"id"`
	PositionID string `json:"position_id"`
	TokenMint  string `json:"token_mint"`
	Symbol     string `json:"symbol"`

	EntryPrice     decimal.Decimal `json:"entry_price"`
	EntryTimestamp time.Time       `json:"entry_timestamp"`

	OriginalQuantity  decimal.Decimal `json:"original_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"` // monotonically non-increasing

	Status Status `json:"status"`

	TakeProfits  []TakeProfitLevel `json:"take_profits"`
	StopLoss     *StopLoss         `json:"stop_loss,omitempty"`
	TrailingStop *TrailingStop     `json:"trailing_stop,omitempty"`
	TimeStop     *TimeStop         `json:"time_stop,omitempty"`

	AutoExecute bool   `json:"auto_execute"`
	Notes       string `json:"notes,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// IsActive checks the intent still needs evaluation
func (i *ExitIntent) IsActive() bool {
	return i.Status == StatusActive
}

// FilledSizePct sums the size_pct of all filled TP levels
func (i *ExitIntent) FilledSizePct() decimal.Decimal {
	total := decimal.Zero
	for _, tp := range i.TakeProfits {
		if tp.Filled {
			total = total.Add(tp.SizePct)
		}
	}
	return total
}

// HasFilledTakeProfit checks whether any ladder level has filled
func (i *ExitIntent) HasFilledTakeProfit() bool {
	for _, tp := range i.TakeProfits {
		if tp.Filled {
			return true
		}
	}
	return false
}

// MarkClosed transitions the intent to closed
func (i *ExitIntent) MarkClosed(now time.Time) {
	i.Status = StatusClosed
	i.UpdatedAt = now
	t := now
	i.ClosedAt = &t
}

// MarkCancelled transitions the intent to cancelled
func (i *ExitIntent) MarkCancelled(now time.Time) {
	i.Status = StatusCancelled
	i.UpdatedAt = now
	t := now
	i.ClosedAt = &t
}

// ReduceRemaining decrements remaining quantity, clamping at zero
func (i *ExitIntent) ReduceRemaining(qty decimal.Decimal, now time.Time) {
	i.RemainingQuantity = i.RemainingQuantity.Sub(qty)
	if i.RemainingQuantity.IsNegative() {
		i.RemainingQuantity = decimal.Zero
	}
	i.UpdatedAt = now
}

// Clone returns a deep copy safe to read outside the monitor's
// control path
func (i *ExitIntent) Clone() *ExitIntent {
	c := *i
	if i.TakeProfits != nil {
		c.TakeProfits = make([]TakeProfitLevel, len(i.TakeProfits))
		copy(c.TakeProfits, i.TakeProfits)
		for idx := range c.TakeProfits {
			if src := i.TakeProfits[idx].FilledAt; src != nil {
				t := *src
				c.TakeProfits[idx].FilledAt = &t
			}
		}
	}
	if i.StopLoss != nil {
		sl := *i.StopLoss
		c.StopLoss = &sl
	}
	if i.TrailingStop != nil {
		ts := *i.TrailingStop
		c.TrailingStop = &ts
	}
	if i.TimeStop != nil {
		tstop := *i.TimeStop
		c.TimeStop = &tstop
	}
	if i.ClosedAt != nil {
		t := *i.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

// Validate checks the structural invariants of a (de)serialized intent
func (i *ExitIntent) Validate() error {
	if i.ID == "" {
		return ErrMissingID
	}
	if i.TokenMint == "" {
		return ErrMissingMint
	}
	if !i.EntryPrice.IsPositive() {
		return ErrNonPositiveEntry
	}
	if !i.Status.IsValid() {
		return ErrUnknownStatus
	}
	if i.OriginalQuantity.IsNegative() || i.RemainingQuantity.IsNegative() {
		return ErrNegativeQuantity
	}
	if i.RemainingQuantity.GreaterThan(i.OriginalQuantity) {
		return ErrRemainingExceedsOriginal
	}
	return nil
}

// Normalize upgrades legacy/partial records at the deserialization
// boundary instead of defaulting throughout the codebase.
func (i *ExitIntent) Normalize() {
	if i.Status == "" {
		i.Status = StatusActive
	}
	if i.RemainingQuantity.IsZero() && i.OriginalQuantity.IsPositive() && !i.HasFilledTakeProfit() && i.Status == StatusActive {
		i.RemainingQuantity = i.OriginalQuantity
	}
	if i.StopLoss != nil {
		if i.StopLoss.SizePct.IsZero() {
			i.StopLoss.SizePct = decimal.NewFromInt(100)
		}
		if i.StopLoss.OriginalPrice.IsZero() {
			i.StopLoss.OriginalPrice = i.StopLoss.Price
		}
	}
	if i.TrailingStop != nil && i.TrailingStop.Active {
		if i.TrailingStop.HighestPrice.IsZero() {
			i.TrailingStop.HighestPrice = i.EntryPrice
		}
		if i.TrailingStop.CurrentStop.IsZero() && i.TrailingStop.TrailPct.IsPositive() {
			i.TrailingStop.CurrentStop = StopFromHigh(i.TrailingStop.HighestPrice, i.TrailingStop.TrailPct)
		}
	}
	if i.TimeStop != nil && i.TimeStop.Action == "" {
		i.TimeStop.Action = ActionExitFully
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = i.CreatedAt
	}
}

// StopFromHigh computes high * (1 - trailPct/100), the trailing stop
// implied by a high-water mark
func StopFromHigh(high, trailPct decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	return high.Mul(one.Sub(trailPct.Div(hundred)))
}
