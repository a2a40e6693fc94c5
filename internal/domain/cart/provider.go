package cart

import (
	"context"

	"github.com/your-org/watchstore-backend/internal/domain/shopper"
	"gorm.io/gorm"
)

// Provider is a cart backend. DurableProvider serves identified shoppers and
// EphemeralProvider serves anonymous sessions; both honour the same contract.
type Provider interface {
	// Active returns the owner's active cart with its lines, creating it if needed.
	Active(ctx context.Context, owner shopper.Owner) (*Cart, error)
	// Read returns the owner's active cart without creating or expiring anything.
	Read(ctx context.Context, owner shopper.Owner) (*Cart, error)
	// AddLine adds delta units of a product; the first add freezes the catalog price.
	AddLine(ctx context.Context, owner shopper.Owner, productID uint, delta int) error
	// AdjustQuantity moves a line by +1 or -1 and deletes it when it reaches zero.
	AdjustQuantity(ctx context.Context, owner shopper.Owner, productID uint, delta int) error
	// RemoveLine deletes a line; removing an absent line is not an error.
	RemoveLine(ctx context.Context, owner shopper.Owner, productID uint) error
	// Merge folds lines into the owner's active cart, keeping their unit prices for new lines.
	Merge(ctx context.Context, owner shopper.Owner, lines []Line) error

	// Claim takes the owner's cart for checkout. Durable carts are row locked inside tx.
	Claim(ctx context.Context, tx *gorm.DB, owner shopper.Owner) (*Cart, error)
	// MarkConverted moves a claimed cart to its terminal state inside tx.
	MarkConverted(ctx context.Context, tx *gorm.DB, c *Cart) error
	// Release gives a claimed cart back after a failed checkout.
	Release(ctx context.Context, c *Cart) error
}
