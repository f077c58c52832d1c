package execution

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/intent"
)

// Mode tags how a decision was carried out
type Mode string

const (
	ModeLogged Mode = "logged" // auto-execute off: decision recorded, nothing sold
	ModePaper  Mode = "paper"  // simulated fill at the evaluated price
	ModeLive   Mode = "live"   // submitted to a real exchange collaborator
)

// SellReceipt is the exchange's confirmation of a submitted sell
type SellReceipt struct {
	Signature      string          `json:"signature"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
}

// Exchange submits sells on behalf of the engine. Implementations must
// return an error for anything short of a confirmed fill; the gateway
// treats every error as retriable on a later pass.
type Exchange interface {
	// SubmitSell sells quantity of mint, tolerating at most
	// maxSlippageBps of slippage.
	SubmitSell(ctx context.Context, mint string, quantity decimal.Decimal, maxSlippageBps int) (*SellReceipt, error)
}

// Request asks the gateway to act on one fired trigger
type Request struct {
	IntentID    string
	TokenMint   string
	Symbol      string
	Trigger     intent.TriggerKind
	Level       int             // TP ordinal, 0 for stops
	Quantity    decimal.Decimal // sell size resolved at decision time
	Price       decimal.Decimal // evaluated price when the trigger fired
	AutoExecute bool
	Reason      string
}

// Outcome is the result of executing (or only logging) one fired trigger
type Outcome struct {
	IntentID string             `json:"intent_id"`
	Trigger  intent.TriggerKind `json:"trigger"`
	Level    int                `json:"level,omitempty"` // TP ordinal, 0 for stops

	Mode     Mode            `json:"mode"`
	Quantity decimal.Decimal `json:"quantity"` // requested sell size
	Price    decimal.Decimal `json:"price"`    // evaluated price at decision time

	Executed       bool            `json:"executed"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	Signature      string          `json:"signature,omitempty"`
	Attempts       int             `json:"attempts"`
	Error          string          `json:"error,omitempty"`

	At time.Time `json:"at"`
}

// Record is one journal row; every decision and submission leaves one
type Record struct {
	IntentID       string
	TokenMint      string
	Symbol         string
	Trigger        string
	Level          int
	Mode           string
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	FilledQuantity decimal.Decimal
	Signature      string
	Success        bool
	Error          string
	Attempts       int
	CreatedAt      time.Time
}

// Journal persists execution records for audit and the ops API
type Journal interface {
	// Record appends one execution record.
	Record(ctx context.Context, rec Record) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
}
