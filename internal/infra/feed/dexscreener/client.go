// Package dexscreener implements the market feed against the public
// DexScreener pair API. No API key is required; the engine polls the
// token endpoint and reduces the pair list to one snapshot per token.
package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/market"
)

const (
	// DefaultBaseURL is the public DexScreener API root
	DefaultBaseURL = "https://api.dexscreener.com"

	// solanaChainID filters pairs to the chain the engine trades on
	solanaChainID = "solana"
)

// Client handles DexScreener API requests
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new DexScreener client. An empty baseURL selects
// the public API; timeout bounds each request end to end.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// tokenResponse represents the DexScreener token endpoint response
type tokenResponse struct {
	Pairs []pairData `json:"pairs"`
}

// pairData represents one DEX pair for the token
type pairData struct {
	ChainID  string `json:"chainId"`
	DexID    string `json:"dexId"`
	PriceUsd string `json:"priceUsd"`

	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`

	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`

	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`

	Txns struct {
		H24 struct {
			Buys  int64 `json:"buys"`
			Sells int64 `json:"sells"`
		} `json:"h24"`
	} `json:"txns"`

	BaseToken struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
}

// Snapshot fetches the current market snapshot for a token mint.
// The deepest Solana pair by pooled liquidity wins; thin clone pairs
// with stale prices are ignored that way.
func (c *Client) Snapshot(ctx context.Context, tokenMint string) (*market.Snapshot, error) {
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, tokenMint)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, market.NewFetchError(tokenMint, fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "jarvis-exit-engine/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, market.NewFetchError(tokenMint, market.ErrTimeout)
		}
		return nil, market.NewFetchError(tokenMint, fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, market.NewFetchError(tokenMint, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, market.NewFetchError(tokenMint,
			fmt.Errorf("%w: status=%d", market.ErrUpstream, resp.StatusCode))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return nil, market.NewFetchError(tokenMint,
			fmt.Errorf("%w: %v", market.ErrBadPayload, err))
	}

	best := bestSolanaPair(tokenResp.Pairs)
	if best == nil {
		return nil, market.NewFetchError(tokenMint, market.ErrNoPairs)
	}

	price, err := decimal.NewFromString(best.PriceUsd)
	if err != nil || !price.IsPositive() {
		return nil, market.NewFetchError(tokenMint,
			fmt.Errorf("%w: priceUsd=%q", market.ErrBadPayload, best.PriceUsd))
	}

	return &market.Snapshot{
		TokenMint:      tokenMint,
		Source:         market.SourceDexScreener,
		Price:          price,
		LiquidityUSD:   decimal.NewFromFloat(best.Liquidity.USD),
		Volume24h:      decimal.NewFromFloat(best.Volume.H24),
		PriceChange24h: decimal.NewFromFloat(best.PriceChange.H24),
		BuyCount:       best.Txns.H24.Buys,
		SellCount:      best.Txns.H24.Sells,
		FetchedAt:      time.Now(),
	}, nil
}

// bestSolanaPair picks the Solana pair with the deepest pooled liquidity
func bestSolanaPair(pairs []pairData) *pairData {
	var best *pairData
	for idx := range pairs {
		p := &pairs[idx]
		if p.ChainID != solanaChainID {
			continue
		}
		if p.PriceUsd == "" {
			continue
		}
		if best == nil || p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}
	return best
}
