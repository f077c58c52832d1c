// Package execution turns fired triggers into sells, journal rows, and
// notifications. The auto-execute gate lives here: a trigger on an
// unauthorized intent produces a decision log and nothing else.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/alert"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/execution"
)

// retryBackoff spaces submission attempts within one pass
const retryBackoff = 400 * time.Millisecond

// marker is implemented by venues that fill at a reference price
// instead of discovering one, like the paper exchange
type marker interface {
	SetMark(mint string, price decimal.Decimal)
}

// Gateway executes fired triggers through the configured exchange
type Gateway struct {
	exchange       execution.Exchange
	journal        execution.Journal
	notifier       alert.Notifier
	mode           execution.Mode
	maxAttempts    int
	maxSlippageBps int
}

// NewGateway creates an execution gateway. exchange may be nil for a
// log-only deployment; journal and notifier may be nil in tests.
func NewGateway(exchange execution.Exchange, journal execution.Journal, notifier alert.Notifier, mode execution.Mode, maxAttempts, maxSlippageBps int) *Gateway {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Gateway{
		exchange:       exchange,
		journal:        journal,
		notifier:       notifier,
		mode:           mode,
		maxAttempts:    maxAttempts,
		maxSlippageBps: maxSlippageBps,
	}
}

// Execute acts on one fired trigger and reports what happened.
// With auto-execute off the outcome only records the decision; state
// mutation stays with the caller, and only after Executed=true.
func (g *Gateway) Execute(ctx context.Context, req execution.Request) *execution.Outcome {
	outcome := &execution.Outcome{
		IntentID: req.IntentID,
		Trigger:  req.Trigger,
		Level:    req.Level,
		Quantity: req.Quantity,
		Price:    req.Price,
		At:       time.Now(),
	}

	// 1. Safety gate: no authorization, no action
	if !req.AutoExecute {
		outcome.Mode = execution.ModeLogged

		log.Info().
			Str("intent_id", req.IntentID).
			Str("symbol", req.Symbol).
			Str("trigger", string(req.Trigger)).
			Int("level", req.Level).
			Str("quantity", req.Quantity.String()).
			Str("price", req.Price.String()).
			Msgf("🎯 Decision (log-only): would sell %s %s at %s", req.Quantity, req.Symbol, req.Price)

		g.record(ctx, req, outcome, true)
		return outcome
	}

	// 2. Authorized: submit with bounded retries
	outcome.Mode = g.mode

	if g.exchange == nil {
		outcome.Error = execution.ErrExchangeNotSet.Error()
		log.Error().
			Str("intent_id", req.IntentID).
			Str("symbol", req.Symbol).
			Msg("Auto-execute requested but no exchange configured")
		g.record(ctx, req, outcome, false)
		g.notifyFailure(ctx, req, outcome)
		return outcome
	}

	// Simulated venues fill at the evaluated price
	if m, ok := g.exchange.(marker); ok {
		m.SetMark(req.TokenMint, req.Price)
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		outcome.Attempts = attempt

		receipt, err := g.exchange.SubmitSell(ctx, req.TokenMint, req.Quantity, g.maxSlippageBps)
		if err == nil {
			outcome.Executed = true
			outcome.FilledQuantity = receipt.FilledQuantity
			outcome.Signature = receipt.Signature

			log.Info().
				Str("intent_id", req.IntentID).
				Str("symbol", req.Symbol).
				Str("trigger", string(req.Trigger)).
				Int("level", req.Level).
				Str("quantity", receipt.FilledQuantity.String()).
				Str("price", req.Price.String()).
				Str("signature", receipt.Signature).
				Int("attempts", attempt).
				Msg("✅ Sell executed")

			g.record(ctx, req, outcome, true)
			g.notifySuccess(ctx, req, outcome)
			return outcome
		}

		lastErr = err
		log.Warn().
			Err(err).
			Str("intent_id", req.IntentID).
			Str("symbol", req.Symbol).
			Str("trigger", string(req.Trigger)).
			Int("attempt", attempt).
			Int("max_attempts", g.maxAttempts).
			Msg("Sell submission failed")

		if attempt < g.maxAttempts {
			select {
			case <-ctx.Done():
				outcome.Error = ctx.Err().Error()
				g.record(ctx, req, outcome, false)
				g.notifyFailure(ctx, req, outcome)
				return outcome
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}
	}

	// 3. Attempts exhausted: trigger stays unfilled, retried next pass
	outcome.Error = fmt.Sprintf("%v: %v", execution.ErrAttemptsExhausted, lastErr)
	log.Error().
		Str("intent_id", req.IntentID).
		Str("symbol", req.Symbol).
		Str("trigger", string(req.Trigger)).
		Int("attempts", outcome.Attempts).
		Str("error", outcome.Error).
		Msg("Execution failed, trigger left unfilled for next pass")

	g.record(ctx, req, outcome, false)
	g.notifyFailure(ctx, req, outcome)
	return outcome
}

// record writes one journal row; journal failures are logged, never
// propagated into the outcome
func (g *Gateway) record(ctx context.Context, req execution.Request, outcome *execution.Outcome, success bool) {
	if g.journal == nil {
		return
	}

	rec := execution.Record{
		IntentID:       req.IntentID,
		TokenMint:      req.TokenMint,
		Symbol:         req.Symbol,
		Trigger:        string(req.Trigger),
		Level:          req.Level,
		Mode:           string(outcome.Mode),
		Quantity:       req.Quantity,
		Price:          req.Price,
		FilledQuantity: outcome.FilledQuantity,
		Signature:      outcome.Signature,
		Success:        success,
		Error:          outcome.Error,
		Attempts:       outcome.Attempts,
		CreatedAt:      outcome.At,
	}
	if err := g.journal.Record(ctx, rec); err != nil {
		log.Warn().
			Err(err).
			Str("intent_id", req.IntentID).
			Msg("Journal write failed")
	}
}

func (g *Gateway) notifySuccess(ctx context.Context, req execution.Request, outcome *execution.Outcome) {
	if g.notifier == nil {
		return
	}
	_ = g.notifier.Notify(ctx, alert.Event{
		Type:     alert.EventExecutionSucceeded,
		Severity: alert.SeverityInfo,
		IntentID: req.IntentID,
		Symbol:   req.Symbol,
		Message:  fmt.Sprintf("Sold %s %s at %s", outcome.FilledQuantity, req.Symbol, req.Price),
		Details: map[string]string{
			"trigger":   string(req.Trigger),
			"mode":      string(outcome.Mode),
			"signature": outcome.Signature,
		},
		At: outcome.At,
	})
}

func (g *Gateway) notifyFailure(ctx context.Context, req execution.Request, outcome *execution.Outcome) {
	if g.notifier == nil {
		return
	}
	_ = g.notifier.Notify(ctx, alert.Event{
		Type:     alert.EventExecutionFailed,
		Severity: alert.SeverityCritical,
		IntentID: req.IntentID,
		Symbol:   req.Symbol,
		Message:  fmt.Sprintf("Failed to sell %s %s: %s", req.Quantity, req.Symbol, outcome.Error),
		Details: map[string]string{
			"trigger":  string(req.Trigger),
			"mode":     string(outcome.Mode),
			"attempts": fmt.Sprintf("%d", outcome.Attempts),
		},
		At: outcome.At,
	})
}
