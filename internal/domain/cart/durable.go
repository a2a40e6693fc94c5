// internal/domain/cart/durable.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/watchstore-backend/internal/config"
	"github.com/your-org/watchstore-backend/internal/domain/catalog"
	"github.com/your-org/watchstore-backend/internal/domain/shopper"
	"github.com/your-org/watchstore-backend/internal/pkg/clock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxResolveAttempts bounds the find/expire/create loop in Active
const maxResolveAttempts = 3

// DurableProvider keeps identified shoppers' carts in the database
type DurableProvider struct {
	db       *gorm.DB
	products catalog.Reader
	clock    clock.Clock
	ttl      time.Duration
	logger   *logrus.Logger
}

// NewDurableProvider creates a new database backed cart provider
func NewDurableProvider(db *gorm.DB, products catalog.Reader, clk clock.Clock, cfg *config.Config, logger *logrus.Logger) *DurableProvider {
	return &DurableProvider{
		db:       db,
		products: products,
		clock:    clk,
		ttl:      cfg.Cart.TTL,
		logger:   logger,
	}
}

// Active returns the owner's active cart. An expired cart is flipped to expired
// and replaced by a fresh one.
func (p *DurableProvider) Active(ctx context.Context, owner shopper.Owner) (*Cart, error) {
	if !owner.Identified() {
		return nil, ErrNoOwner
	}

	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		c, err := p.findActive(ctx, p.db, owner.UserID, false)
		if err != nil {
			return nil, err
		}

		if c == nil {
			c, err = p.create(ctx, owner.UserID)
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// a concurrent request created it first; read theirs
				continue
			}
			if err != nil {
				return nil, err
			}
			return c, nil
		}

		if c.Expired(p.clock.Now()) {
			if err := p.expire(ctx, c, owner); err != nil {
				return nil, err
			}
			continue
		}

		if err := loadLines(ctx, p.db, c); err != nil {
			return nil, err
		}
		return c, nil
	}

	return nil, fmt.Errorf("failed to resolve active cart for %s", owner)
}

// Read returns the active cart or an empty one, without writing
func (p *DurableProvider) Read(ctx context.Context, owner shopper.Owner) (*Cart, error) {
	if !owner.Identified() {
		return nil, ErrNoOwner
	}

	c, err := p.findActive(ctx, p.db, owner.UserID, false)
	if err != nil {
		return nil, err
	}
	if c == nil || c.Expired(p.clock.Now()) {
		return &Cart{UserID: owner.UserID, State: StateActive, Lines: []Line{}}, nil
	}

	if err := loadLines(ctx, p.db, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddLine adds delta units of a product to the owner's cart
func (p *DurableProvider) AddLine(ctx context.Context, owner shopper.Owner, productID uint, delta int) error {
	if delta < 1 {
		return ErrInvalidQuantity
	}

	prod, err := p.products.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	return p.withActiveCart(ctx, owner, func(tx *gorm.DB, c *Cart) error {
		return upsertLine(tx, c.ID, newLine(prod, delta))
	})
}

// AdjustQuantity moves a line by one unit; a line that would reach zero is deleted
func (p *DurableProvider) AdjustQuantity(ctx context.Context, owner shopper.Owner, productID uint, delta int) error {
	if delta != 1 && delta != -1 {
		return ErrInvalidQuantity
	}

	return p.withActiveCart(ctx, owner, func(tx *gorm.DB, c *Cart) error {
		result := tx.Model(&Line{}).
			Scopes(lineOf(c.ID, productID)).
			Where("quantity + ? > 0", delta).
			Update("quantity", gorm.Expr("quantity + ?", delta))
		if result.Error != nil {
			return fmt.Errorf("failed to adjust cart line: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			return nil
		}

		// Either there is no such line or it would drop to zero
		if err := tx.Scopes(lineOf(c.ID, productID)).
			Where("quantity + ? <= 0", delta).
			Delete(&Line{}).Error; err != nil {
			return fmt.Errorf("failed to delete cart line: %w", err)
		}
		return nil
	})
}

// RemoveLine deletes the owner's line for a product if present
func (p *DurableProvider) RemoveLine(ctx context.Context, owner shopper.Owner, productID uint) error {
	return p.withActiveCart(ctx, owner, func(tx *gorm.DB, c *Cart) error {
		if err := tx.Scopes(lineOf(c.ID, productID)).Delete(&Line{}).Error; err != nil {
			return fmt.Errorf("failed to remove cart line: %w", err)
		}
		return nil
	})
}

// Merge folds lines into the owner's active cart. Either every line lands or none does.
func (p *DurableProvider) Merge(ctx context.Context, owner shopper.Owner, lines []Line) error {
	return p.withActiveCart(ctx, owner, func(tx *gorm.DB, c *Cart) error {
		for _, l := range lines {
			if l.Quantity < 1 {
				continue
			}
			line := &Line{
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice,
				Name:      l.Name,
				Brand:     l.Brand,
				ImageURL:  l.ImageURL,
			}
			if err := upsertLine(tx, c.ID, line); err != nil {
				return err
			}
		}
		return nil
	})
}

// Claim locks the owner's active cart inside tx
func (p *DurableProvider) Claim(ctx context.Context, tx *gorm.DB, owner shopper.Owner) (*Cart, error) {
	if !owner.Identified() {
		return nil, ErrNoOwner
	}

	c, err := p.findActive(ctx, tx, owner.UserID, true)
	if err != nil {
		return nil, err
	}
	if c == nil || c.Expired(p.clock.Now()) {
		return nil, ErrEmptyCart
	}

	if err := loadLines(ctx, tx, c); err != nil {
		return nil, err
	}
	if c.Empty() {
		return nil, ErrEmptyCart
	}
	return c, nil
}

// MarkConverted flips a claimed cart from active to converted exactly once
func (p *DurableProvider) MarkConverted(ctx context.Context, tx *gorm.DB, c *Cart) error {
	result := tx.WithContext(ctx).Model(&Cart{}).
		Where("id = ? AND state = ?", c.ID, StateActive).
		Update("state", StateConverted)
	if result.Error != nil {
		return fmt.Errorf("failed to convert cart: %w", result.Error)
	}
	if result.RowsAffected != 1 {
		return ErrEmptyCart
	}
	c.State = StateConverted
	return nil
}

// Release is a no-op; rolling back the checkout transaction already restored the cart
func (p *DurableProvider) Release(ctx context.Context, c *Cart) error {
	return nil
}

func (p *DurableProvider) findActive(ctx context.Context, db *gorm.DB, userID uint, lock bool) (*Cart, error) {
	query := db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var c Cart
	err := query.Where("user_id = ? AND state = ?", userID, StateActive).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active cart: %w", err)
	}
	return &c, nil
}

func (p *DurableProvider) create(ctx context.Context, userID uint) (*Cart, error) {
	now := p.clock.Now()
	c := &Cart{
		UserID:    userID,
		State:     StateActive,
		CreatedAt: now,
		ExpiresAt: now.Add(p.ttl),
	}
	if err := p.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	c.Lines = []Line{}
	return c, nil
}

func (p *DurableProvider) expire(ctx context.Context, c *Cart, owner shopper.Owner) error {
	result := p.db.WithContext(ctx).Model(&Cart{}).
		Where("id = ? AND state = ?", c.ID, StateActive).
		Update("state", StateExpired)
	if result.Error != nil {
		return fmt.Errorf("failed to expire cart: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		p.logger.WithError(ErrCartExpired).WithFields(logrus.Fields{
			"cart_id":    c.ID,
			"owner":      owner.String(),
			"expires_at": c.ExpiresAt,
		}).Info("Replacing expired cart")
	}
	return nil
}

// withActiveCart runs fn in a transaction holding a share lock on the owner's
// active cart. Checkout's claim takes the same row FOR UPDATE, so line writes
// and conversion never interleave. A cart that was converted or expired after
// it was resolved is resolved again.
func (p *DurableProvider) withActiveCart(ctx context.Context, owner shopper.Owner, fn func(tx *gorm.DB, c *Cart) error) error {
	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		c, err := p.Active(ctx, owner)
		if err != nil {
			return err
		}

		err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := p.lockActive(tx, c.ID); err != nil {
				return err
			}
			return fn(tx, c)
		})
		if errors.Is(err, errCartClosed) {
			continue
		}
		return err
	}

	return fmt.Errorf("failed to resolve active cart for %s", owner)
}

// lockActive takes a share lock on the cart and reports errCartClosed when it
// is no longer active
func (p *DurableProvider) lockActive(tx *gorm.DB, cartID uint) error {
	var c Cart
	err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
		Where("id = ? AND state = ?", cartID, StateActive).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errCartClosed
	}
	if err != nil {
		return fmt.Errorf("failed to lock cart: %w", err)
	}
	if c.Expired(p.clock.Now()) {
		return errCartClosed
	}
	return nil
}

// upsertLine increments an existing line or inserts line. Losing the insert
// race on the (cart, product) index folds into an increment; the insert runs
// under a savepoint so the failed statement does not abort tx.
func upsertLine(tx *gorm.DB, cartID uint, line *Line) error {
	ok, err := increment(tx, cartID, line.ProductID, line.Quantity)
	if err != nil || ok {
		return err
	}

	line.CartID = cartID
	err = tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(line).Error
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("failed to add cart line: %w", err)
	}

	_, err = increment(tx, cartID, line.ProductID, line.Quantity)
	return err
}

func increment(tx *gorm.DB, cartID, productID uint, delta int) (bool, error) {
	result := tx.Model(&Line{}).
		Scopes(lineOf(cartID, productID)).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		return false, fmt.Errorf("failed to increment cart line: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// lineOf scopes a query to one line of a cart that is still active
func lineOf(cartID, productID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("cart_id = ? AND product_id = ?", cartID, productID).
			Where("EXISTS (SELECT 1 FROM carts WHERE carts.id = cart_lines.cart_id AND carts.state = ?)", StateActive)
	}
}

func loadLines(ctx context.Context, db *gorm.DB, c *Cart) error {
	c.Lines = []Line{}
	if err := db.WithContext(ctx).Where("cart_id = ?", c.ID).Order("product_id ASC").Find(&c.Lines).Error; err != nil {
		return fmt.Errorf("failed to load cart lines: %w", err)
	}
	return nil
}
