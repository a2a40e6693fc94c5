// internal/domain/checkout/committer.go
package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/watchstore-backend/internal/config"
	"github.com/your-org/watchstore-backend/internal/domain/address"
	"github.com/your-org/watchstore-backend/internal/domain/cart"
	"github.com/your-org/watchstore-backend/internal/domain/inventory"
	"github.com/your-org/watchstore-backend/internal/domain/order"
	"github.com/your-org/watchstore-backend/internal/domain/shopper"
	"gorm.io/gorm"
)

// Request carries the shopper's checkout choices
type Request struct {
	AddressID     uint   `json:"address_id"`
	PaymentMethod string `json:"payment_method"`
}

// CartResolver picks the cart backend for an owner
type CartResolver interface {
	ProviderFor(owner shopper.Owner) (cart.Provider, error)
}

// Committer converts an active cart into an order in one transaction
type Committer struct {
	db        *gorm.DB
	carts     CartResolver
	addresses address.Book
	inventory *inventory.Service
	recorder  *order.Recorder
	methods   map[string]struct{}
	logger    *logrus.Logger
}

// NewCommitter creates a new checkout committer
func NewCommitter(db *gorm.DB, carts CartResolver, addresses address.Book, inv *inventory.Service, recorder *order.Recorder, cfg *config.Config, logger *logrus.Logger) *Committer {
	methods := make(map[string]struct{}, len(cfg.Checkout.PaymentMethods))
	for _, m := range cfg.Checkout.PaymentMethods {
		methods[m] = struct{}{}
	}

	return &Committer{
		db:        db,
		carts:     carts,
		addresses: addresses,
		inventory: inv,
		recorder:  recorder,
		methods:   methods,
		logger:    logger,
	}
}

// Checkout commits the owner's active cart and returns the new order id.
//
// Preconditions fail fast in order: an active cart with lines, then the
// address and payment method, then stock for every line. Everything from the
// cart claim to the cart's conversion runs in one transaction, so a failure
// leaves no order and no stock change behind.
func (c *Committer) Checkout(ctx context.Context, owner shopper.Owner, req *Request) (uint, error) {
	provider, err := c.carts.ProviderFor(owner)
	if err != nil {
		if errors.Is(err, cart.ErrNoOwner) {
			return 0, ErrEmptyCart
		}
		return 0, err
	}

	current, err := provider.Read(ctx, owner)
	if err != nil {
		return 0, err
	}
	if current.Empty() {
		return 0, ErrEmptyCart
	}

	if err := c.validate(req); err != nil {
		return 0, err
	}

	addr, err := c.addresses.GetAddress(ctx, req.AddressID, owner)
	if err != nil {
		return 0, err
	}

	var claimed *cart.Cart
	var placed *order.Order
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		claimed, err = provider.Claim(ctx, tx, owner)
		if err != nil {
			return err
		}

		ids := make([]uint, 0, len(claimed.Lines))
		for _, l := range claimed.Lines {
			ids = append(ids, l.ProductID)
		}
		locked, err := c.inventory.LockProducts(ctx, tx, ids)
		if err != nil {
			return err
		}

		for _, l := range claimed.Lines {
			p := locked[l.ProductID]
			if !p.InStock(l.Quantity) {
				return &InsufficientStockError{
					ProductID: p.ID,
					Name:      p.Name,
					Available: p.Stock,
					Requested: l.Quantity,
				}
			}
		}

		placed, err = c.recorder.Record(ctx, tx, draftFrom(owner, claimed, addr, req.PaymentMethod))
		if err != nil {
			return err
		}

		for _, l := range claimed.Lines {
			if _, err := c.inventory.Decrement(ctx, tx, locked[l.ProductID], l.Quantity, placed.ID); err != nil {
				return err
			}
		}

		return provider.MarkConverted(ctx, tx, claimed)
	})
	if err != nil {
		if claimed != nil {
			if rerr := provider.Release(context.WithoutCancel(ctx), claimed); rerr != nil {
				c.logger.WithError(rerr).WithField("owner", owner.String()).Error("Failed to release cart after checkout failure")
			}
		}
		c.logger.WithError(err).WithField("owner", owner.String()).Warn("Checkout rejected")
		return 0, err
	}

	c.logger.WithFields(logrus.Fields{
		"owner":        owner.String(),
		"order_id":     placed.ID,
		"order_number": placed.OrderNumber,
		"total":        placed.Total,
		"lines":        len(placed.Lines),
	}).Info("Order placed")

	return placed.ID, nil
}

func (c *Committer) validate(req *Request) error {
	if req == nil || req.AddressID == 0 {
		return &MissingCheckoutInputError{Field: "address_id"}
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		return &MissingCheckoutInputError{Field: "payment_method"}
	}
	if _, ok := c.methods[method]; !ok {
		return &MissingCheckoutInputError{Field: "payment_method", Reason: "unsupported method " + method}
	}
	req.PaymentMethod = method
	return nil
}

func draftFrom(owner shopper.Owner, c *cart.Cart, addr *address.Address, method string) *order.Draft {
	d := &order.Draft{
		Owner:         owner,
		Address:       addr,
		PaymentMethod: method,
		Lines:         make([]order.DraftLine, 0, len(c.Lines)),
	}
	if c.ID != 0 {
		cartID := c.ID
		d.CartID = &cartID
	}
	for _, l := range c.Lines {
		d.Lines = append(d.Lines, order.DraftLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Brand:     l.Brand,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return d
}
