package ledger

import "errors"

// Error kinds surfaced by ledger operations. Callers match them with
// errors.Is; anything else is a store failure and maps to a generic error.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
)
