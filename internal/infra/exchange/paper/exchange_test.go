package paper

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/execution"
)

func TestSubmitSellFillsFully(t *testing.T) {
	ex := New()
	ex.SetMark("mint-a", decimal.RequireFromString("1.52"))

	receipt, err := ex.SubmitSell(context.Background(), "mint-a", decimal.NewFromInt(600), 100)
	if err != nil {
		t.Fatalf("SubmitSell failed: %v", err)
	}

	if !receipt.FilledQuantity.Equal(decimal.NewFromInt(600)) {
		t.Errorf("Expected full fill of 600, got %s", receipt.FilledQuantity)
	}
	if !strings.HasPrefix(receipt.Signature, "paper-") {
		t.Errorf("Expected paper signature, got %s", receipt.Signature)
	}

	fills := ex.Fills()
	if len(fills) != 1 {
		t.Fatalf("Expected 1 fill, got %d", len(fills))
	}
	if !fills[0].Price.Equal(decimal.RequireFromString("1.52")) {
		t.Errorf("Expected fill at mark 1.52, got %s", fills[0].Price)
	}
	if fills[0].SlippageBps != 100 {
		t.Errorf("Expected slippage 100 bps, got %d", fills[0].SlippageBps)
	}
}

func TestSubmitSellRejectsZeroQuantity(t *testing.T) {
	ex := New()

	_, err := ex.SubmitSell(context.Background(), "mint-a", decimal.Zero, 100)
	if !errors.Is(err, execution.ErrNothingToSell) {
		t.Errorf("Expected ErrNothingToSell, got %v", err)
	}
}

func TestFailNext(t *testing.T) {
	ex := New()
	ex.FailNext(2)
	ctx := context.Background()
	qty := decimal.NewFromInt(10)

	for i := 0; i < 2; i++ {
		if _, err := ex.SubmitSell(ctx, "mint-a", qty, 0); !errors.Is(err, execution.ErrSubmitFailed) {
			t.Fatalf("Attempt %d: expected ErrSubmitFailed, got %v", i+1, err)
		}
	}

	if _, err := ex.SubmitSell(ctx, "mint-a", qty, 0); err != nil {
		t.Fatalf("Expected third attempt to succeed, got %v", err)
	}
	if len(ex.Fills()) != 1 {
		t.Errorf("Expected only the successful submit recorded, got %d fills", len(ex.Fills()))
	}
}
