package execution

import "errors"

// Execution errors
var (
	ErrSubmitFailed      = errors.New("sell submission failed")
	ErrAttemptsExhausted = errors.New("max execution attempts exhausted")
	ErrNothingToSell     = errors.New("no remaining quantity to sell")
	ErrExchangeNotSet    = errors.New("no exchange configured for auto-execution")
)
