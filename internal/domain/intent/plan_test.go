package intent

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// TestBuildResolvesAbsolutePrices tests that the builder turns relative
// plan percentages into absolute trigger prices
func TestBuildResolvesAbsolutePrices(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	it, err := Build(BuildParams{
		PositionID: "pos-1",
		TokenMint:  "So11111111111111111111111111111111111111112",
		Symbol:     "SOL",
		EntryPrice: decimal.NewFromInt(1),
		Quantity:   decimal.NewFromInt(1000),
		Plan:       DefaultSpotPlan(),
	}, now)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	t.Run("take-profit ladder", func(t *testing.T) {
		if len(it.TakeProfits) != 3 {
			t.Fatalf("Expected 3 TP levels, got %d", len(it.TakeProfits))
		}
		wantPrices := []string{"1.08", "1.18", "1.4"}
		for i, tp := range it.TakeProfits {
			if tp.Level != i+1 {
				t.Errorf("Expected level %d, got %d", i+1, tp.Level)
			}
			if !tp.Price.Equal(decimal.RequireFromString(wantPrices[i])) {
				t.Errorf("Level %d: expected price %s, got %s", i+1, wantPrices[i], tp.Price)
			}
			if tp.Filled {
				t.Errorf("Level %d: expected unfilled", i+1)
			}
		}
	})

	t.Run("stop-loss", func(t *testing.T) {
		if it.StopLoss == nil {
			t.Fatal("Expected stop-loss, got nil")
		}
		if !it.StopLoss.Price.Equal(decimal.RequireFromString("0.91")) {
			t.Errorf("Expected stop at 0.91, got %s", it.StopLoss.Price)
		}
		if !it.StopLoss.OriginalPrice.Equal(it.StopLoss.Price) {
			t.Errorf("Expected original price to match initial stop")
		}
		if it.StopLoss.Adjusted {
			t.Error("Expected unadjusted stop-loss")
		}
	})

	t.Run("trailing stop seeded at entry", func(t *testing.T) {
		if it.TrailingStop == nil || !it.TrailingStop.Active {
			t.Fatal("Expected active trailing stop")
		}
		if !it.TrailingStop.HighestPrice.Equal(decimal.NewFromInt(1)) {
			t.Errorf("Expected HWM at entry, got %s", it.TrailingStop.HighestPrice)
		}
		if !it.TrailingStop.CurrentStop.Equal(decimal.RequireFromString("0.95")) {
			t.Errorf("Expected current stop 0.95, got %s", it.TrailingStop.CurrentStop)
		}
	})

	t.Run("time stop deadline", func(t *testing.T) {
		if it.TimeStop == nil {
			t.Fatal("Expected time stop, got nil")
		}
		want := now.Add(90 * time.Minute)
		if !it.TimeStop.Deadline.Equal(want) {
			t.Errorf("Expected deadline %s, got %s", want, it.TimeStop.Deadline)
		}
		if it.TimeStop.Action != ActionExitFully {
			t.Errorf("Expected exit_fully action, got %s", it.TimeStop.Action)
		}
	})

	t.Run("quantities and status", func(t *testing.T) {
		if !it.RemainingQuantity.Equal(it.OriginalQuantity) {
			t.Errorf("Expected remaining == original, got %s vs %s", it.RemainingQuantity, it.OriginalQuantity)
		}
		if it.Status != StatusActive {
			t.Errorf("Expected active status, got %s", it.Status)
		}
		if it.ID == "" {
			t.Error("Expected generated id")
		}
	})
}

// TestBuildSortsLadder tests that out-of-order plan levels come out
// ascending with 1-based ordinals
func TestBuildSortsLadder(t *testing.T) {
	it, err := Build(BuildParams{
		TokenMint:  "mint",
		EntryPrice: decimal.NewFromInt(2),
		Quantity:   decimal.NewFromInt(10),
		Plan: PlanSpec{
			TakeProfits: []PlanLevel{
				{GainPct: decimal.NewFromInt(100), SizePct: decimal.NewFromInt(25)},
				{GainPct: decimal.NewFromInt(50), SizePct: decimal.NewFromInt(60)},
				{GainPct: decimal.NewFromInt(200), SizePct: decimal.NewFromInt(15)},
			},
			StopLossPct: decimal.NewFromInt(15),
		},
	}, time.Now())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	prev := decimal.Zero
	for i, tp := range it.TakeProfits {
		if tp.Level != i+1 {
			t.Errorf("Expected ordinal %d, got %d", i+1, tp.Level)
		}
		if !tp.Price.GreaterThan(prev) {
			t.Errorf("Expected ascending prices, got %s after %s", tp.Price, prev)
		}
		prev = tp.Price
	}
}

// TestBuildValidation tests plan rejection paths
func TestBuildValidation(t *testing.T) {
	base := BuildParams{
		TokenMint:  "mint",
		EntryPrice: decimal.NewFromInt(1),
		Quantity:   decimal.NewFromInt(100),
		Plan:       DefaultSpotPlan(),
	}

	t.Run("zero entry price", func(t *testing.T) {
		p := base
		p.EntryPrice = decimal.Zero

		_, err := Build(p, time.Now())
		if !errors.Is(err, ErrInvalidPlan) {
			t.Errorf("Expected ErrInvalidPlan, got %v", err)
		}
		if !errors.Is(err, ErrNonPositiveEntry) {
			t.Errorf("Expected ErrNonPositiveEntry cause, got %v", err)
		}
	})

	t.Run("zero quantity", func(t *testing.T) {
		p := base
		p.Quantity = decimal.Zero

		_, err := Build(p, time.Now())
		if !errors.Is(err, ErrNonPositiveQty) {
			t.Errorf("Expected ErrNonPositiveQty, got %v", err)
		}
	})

	t.Run("missing mint", func(t *testing.T) {
		p := base
		p.TokenMint = ""

		_, err := Build(p, time.Now())
		if !errors.Is(err, ErrMissingMint) {
			t.Errorf("Expected ErrMissingMint, got %v", err)
		}
	})

	t.Run("ladder over 100 percent", func(t *testing.T) {
		p := base
		p.Plan.TakeProfits = []PlanLevel{
			{GainPct: decimal.NewFromInt(10), SizePct: decimal.NewFromInt(60)},
			{GainPct: decimal.NewFromInt(20), SizePct: decimal.NewFromInt(45)},
		}

		_, err := Build(p, time.Now())
		if !errors.Is(err, ErrLadderOversized) {
			t.Errorf("Expected ErrLadderOversized, got %v", err)
		}
	})

	t.Run("ladder at exactly 100 percent is fine", func(t *testing.T) {
		p := base
		p.Plan.TakeProfits = []PlanLevel{
			{GainPct: decimal.NewFromInt(10), SizePct: decimal.NewFromInt(60)},
			{GainPct: decimal.NewFromInt(20), SizePct: decimal.NewFromInt(40)},
		}

		if _, err := Build(p, time.Now()); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})

	t.Run("stop-loss pct out of range", func(t *testing.T) {
		p := base
		p.Plan.StopLossPct = decimal.NewFromInt(100)

		if _, err := Build(p, time.Now()); !errors.Is(err, ErrInvalidPlan) {
			t.Errorf("Expected ErrInvalidPlan, got %v", err)
		}

		p.Plan.StopLossPct = decimal.Zero
		if _, err := Build(p, time.Now()); !errors.Is(err, ErrInvalidPlan) {
			t.Errorf("Expected ErrInvalidPlan for zero stop, got %v", err)
		}
	})

	t.Run("negative take-profit gain", func(t *testing.T) {
		p := base
		p.Plan.TakeProfits = []PlanLevel{
			{GainPct: decimal.NewFromInt(-5), SizePct: decimal.NewFromInt(50)},
		}

		if _, err := Build(p, time.Now()); !errors.Is(err, ErrInvalidPlan) {
			t.Errorf("Expected ErrInvalidPlan, got %v", err)
		}
	})
}

// TestAggressivePlanPrices tests the wide ladder template against a $1 entry
func TestAggressivePlanPrices(t *testing.T) {
	it, err := Build(BuildParams{
		TokenMint:  "mint",
		EntryPrice: decimal.NewFromInt(1),
		Quantity:   decimal.NewFromInt(100),
		Plan:       AggressivePlan(),
	}, time.Now())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	wantPrices := []string{"1.5", "2", "3"}
	for i, tp := range it.TakeProfits {
		if !tp.Price.Equal(decimal.RequireFromString(wantPrices[i])) {
			t.Errorf("Level %d: expected %s, got %s", i+1, wantPrices[i], tp.Price)
		}
	}
	if !it.StopLoss.Price.Equal(decimal.RequireFromString("0.85")) {
		t.Errorf("Expected stop at 0.85, got %s", it.StopLoss.Price)
	}
	if it.TrailingStop != nil {
		t.Error("Expected no trailing stop in aggressive plan")
	}
	if it.TimeStop != nil {
		t.Error("Expected no time stop in aggressive plan")
	}
}
