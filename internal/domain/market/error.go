package market

import (
	"errors"
	"fmt"
)

// Fetch failure causes
var (
	ErrNoPairs    = errors.New("no tradable pairs for token")
	ErrBadPayload = errors.New("malformed feed payload")
	ErrTimeout    = errors.New("feed request timed out")
	ErrUpstream   = errors.New("feed upstream error")
)

// FetchError wraps a failed snapshot fetch for one token.
// It never crosses a pass boundary: the monitor logs it and skips the
// intent for that pass.
type FetchError struct {
	TokenMint string
	Cause     error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.TokenMint, e.Cause)
}

// Unwrap exposes the cause for errors.Is/As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewFetchError creates a FetchError for a token
func NewFetchError(mint string, cause error) *FetchError {
	return &FetchError{TokenMint: mint, Cause: cause}
}
