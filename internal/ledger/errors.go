package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for expense resolution. An ambiguous barcode match is not
// an error: it comes back as a populated Candidates slice on the result.
var (
	// ErrNoStock means no in-stock product matched the barcode in scope.
	ErrNoStock = errors.New("no matching stock")

	// ErrInsufficientStock means the requested expense exceeds the current
	// quantity. The product is left unchanged.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrProductNotFound means an explicit product reference did not resolve.
	ErrProductNotFound = errors.New("product not found")
)

// ValidationError reports invalid operation input, rejected before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
