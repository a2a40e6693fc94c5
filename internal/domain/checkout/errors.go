package checkout

import (
	"errors"
	"fmt"

	"github.com/your-org/watchstore-backend/internal/domain/cart"
	"github.com/your-org/watchstore-backend/internal/domain/inventory"
)

var (
	// ErrEmptyCart means there is no active cart with lines to check out
	ErrEmptyCart = cart.ErrEmptyCart
	// ErrInsufficientStock matches every *InsufficientStockError
	ErrInsufficientStock = inventory.ErrInsufficientStock
	// ErrMissingCheckoutInput matches every *MissingCheckoutInputError
	ErrMissingCheckoutInput = errors.New("missing checkout input")
)

// InsufficientStockError names the first product that cannot cover its line
type InsufficientStockError = inventory.InsufficientStockError

// MissingCheckoutInputError names the checkout field that is absent or unusable
type MissingCheckoutInputError struct {
	Field  string
	Reason string
}

func (e *MissingCheckoutInputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("missing checkout input %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("missing checkout input: %s", e.Field)
}

// Is lets errors.Is match ErrMissingCheckoutInput
func (e *MissingCheckoutInputError) Is(target error) bool {
	return target == ErrMissingCheckoutInput
}
