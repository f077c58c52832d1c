package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source represents where a snapshot came from
type Source string

const (
	SourceDexScreener Source = "DEXSCREENER" // DexScreener pair aggregator
	SourcePaper       Source = "PAPER"       // simulated fills in paper mode
)

// IsValid checks if source is valid
func (s Source) IsValid() bool {
	switch s {
	case SourceDexScreener, SourcePaper:
		return true
	default:
		return false
	}
}

// Snapshot represents one observation of a token's market state.
// Transient: consumed by a single evaluation pass, never persisted.
type Snapshot struct {
	TokenMint string `json:"token_mint"`
	Source    Source `json:"source"`

	// Price and depth
	Price        decimal.Decimal `json:"price"`         // USD per token
	LiquidityUSD decimal.Decimal `json:"liquidity_usd"` // pooled liquidity of the chosen pair
	Volume24h    decimal.Decimal `json:"volume_24h"`    // 24h traded volume (USD)

	// Flow
	PriceChange24h decimal.Decimal `json:"price_change_24h"` // 24h change (%)
	BuyCount       int64           `json:"buy_count"`        // 24h buy tx count
	SellCount      int64           `json:"sell_count"`       // 24h sell tx count

	FetchedAt time.Time `json:"fetched_at"`
}

// Age returns how old the snapshot is at now
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// HasPrice checks the snapshot carries a usable positive price
func (s *Snapshot) HasPrice() bool {
	return s.Price.IsPositive()
}
