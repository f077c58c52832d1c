package market

import "context"

// Feed provides current market snapshots for tokens.
// Implementations must wrap every failure in *FetchError so a caller
// evaluating many tokens can isolate failures per token.
type Feed interface {
	Snapshot(ctx context.Context, tokenMint string) (*Snapshot, error)
}
