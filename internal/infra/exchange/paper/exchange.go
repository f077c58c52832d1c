// Package paper simulates order submission for paper-trading mode.
// Every sell fills completely at the marked price; no chain interaction
// happens. A live exchange implementing execution.Exchange is wired in
// by the hosting system when real submission is wanted.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/execution"
)

// Fill records one simulated sell
type Fill struct {
	Mint        string
	Quantity    decimal.Decimal
	Price       decimal.Decimal // mark at submit time, zero when unmarked
	SlippageBps int
	At          time.Time
}

// Exchange is the simulated venue
type Exchange struct {
	mu       sync.Mutex
	marks    map[string]decimal.Decimal
	fills    []Fill
	failNext int
}

// New creates a paper exchange
func New() *Exchange {
	return &Exchange{marks: make(map[string]decimal.Decimal)}
}

// SetMark sets the fill price for a mint. The gateway marks the
// evaluated snapshot price before submitting so paper fills land where
// the trigger fired.
func (e *Exchange) SetMark(mint string, price decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.marks[mint] = price
}

// FailNext makes the next n submissions fail. Test hook for the
// gateway's retry path.
func (e *Exchange) FailNext(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failNext = n
}

// SubmitSell simulates a full fill at the current mark
func (e *Exchange) SubmitSell(ctx context.Context, mint string, quantity decimal.Decimal, maxSlippageBps int) (*execution.SellReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !quantity.IsPositive() {
		return nil, execution.ErrNothingToSell
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failNext > 0 {
		e.failNext--
		return nil, fmt.Errorf("%w: simulated venue failure", execution.ErrSubmitFailed)
	}

	e.fills = append(e.fills, Fill{
		Mint:        mint,
		Quantity:    quantity,
		Price:       e.marks[mint],
		SlippageBps: maxSlippageBps,
		At:          time.Now(),
	})

	return &execution.SellReceipt{
		Signature:      fmt.Sprintf("paper-%s", uuid.New().String()),
		FilledQuantity: quantity,
	}, nil
}

// Fills returns a copy of all simulated sells
func (e *Exchange) Fills() []Fill {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Fill, len(e.fills))
	copy(out, e.fills)
	return out
}
