package intent

import "errors"

// Domain errors
var (
	// Plan construction errors (ValidationError family)
	ErrInvalidPlan      = errors.New("invalid exit plan")
	ErrNonPositiveEntry = errors.New("entry price must be positive")
	ErrNonPositiveQty   = errors.New("quantity must be positive")
	ErrLadderOversized  = errors.New("take-profit sizes exceed 100%")

	// Record errors (deserialization boundary)
	ErrMissingID                = errors.New("intent id missing")
	ErrMissingMint              = errors.New("token mint missing")
	ErrUnknownStatus            = errors.New("unknown intent status")
	ErrNegativeQuantity         = errors.New("negative quantity")
	ErrRemainingExceedsOriginal = errors.New("remaining quantity exceeds original")

	// Store errors
	ErrIntentNotFound = errors.New("intent not found")
	ErrIntentTerminal = errors.New("intent already closed or cancelled")
	ErrCorruptStore   = errors.New("intent store corrupt, starting empty")
)
