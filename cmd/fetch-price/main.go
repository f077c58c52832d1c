package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/infra/feed/dexscreener"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/pkg/config"
)

func main() {
	flag.Parse()
	mint := flag.Arg(0)
	if mint == "" {
		fmt.Println("Usage: fetch-price <token_mint>")
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := dexscreener.NewClient(cfg.Feed.DexScreenerBaseURL, cfg.Feed.Timeout)

	fmt.Printf("📊 Fetching snapshot for %s...\n", mint)

	snap, err := client.Snapshot(ctx, mint)
	if err != nil {
		fmt.Printf("Fetch failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nSource:      %s\n", snap.Source)
	fmt.Printf("Price:       $%s\n", snap.Price)
	fmt.Printf("Liquidity:   $%s\n", snap.LiquidityUSD)
	fmt.Printf("Volume 24h:  $%s\n", snap.Volume24h)
	fmt.Printf("Change 24h:  %s%%\n", snap.PriceChange24h)
	fmt.Printf("Buys/Sells:  %d/%d\n", snap.BuyCount, snap.SellCount)
	fmt.Printf("Fetched at:  %s\n", snap.FetchedAt.Format(time.RFC3339))
}
