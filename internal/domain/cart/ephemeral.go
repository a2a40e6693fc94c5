// internal/domain/cart/ephemeral.go
package cart

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/watchstore-backend/internal/config"
	"github.com/your-org/watchstore-backend/internal/domain/catalog"
	"github.com/your-org/watchstore-backend/internal/domain/shopper"
	"github.com/your-org/watchstore-backend/internal/pkg/clock"
	"gorm.io/gorm"
)

// maxWatchRetries bounds optimistic retries of a session cart update
const maxWatchRetries = 10

// sessionCart is the Redis representation of a guest cart
type sessionCart struct {
	SessionID string               `json:"session_id"`
	Lines     map[uint]sessionLine `json:"lines"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type sessionLine struct {
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	ImageURL  string `json:"image_url"`
}

// EphemeralProvider keeps anonymous shoppers' carts in Redis, keyed by session
type EphemeralProvider struct {
	rdb      *redis.Client
	products catalog.Reader
	clock    clock.Clock
	ttl      time.Duration
}

// NewEphemeralProvider creates a new Redis backed cart provider
func NewEphemeralProvider(rdb *redis.Client, products catalog.Reader, clk clock.Clock, cfg *config.Config) *EphemeralProvider {
	return &EphemeralProvider{
		rdb:      rdb,
		products: products,
		clock:    clk,
		ttl:      cfg.Cart.SessionTTL,
	}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

// Active returns the session cart; nothing is written until the first mutation
func (p *EphemeralProvider) Active(ctx context.Context, owner shopper.Owner) (*Cart, error) {
	return p.Read(ctx, owner)
}

// Read returns the session cart
func (p *EphemeralProvider) Read(ctx context.Context, owner shopper.Owner) (*Cart, error) {
	if owner.SessionID == "" {
		return nil, ErrNoOwner
	}

	sc, err := p.load(ctx, p.rdb, owner.SessionID)
	if err != nil {
		return nil, err
	}
	return p.toCart(sc), nil
}

// AddLine adds delta units of a product to the session cart
func (p *EphemeralProvider) AddLine(ctx context.Context, owner shopper.Owner, productID uint, delta int) error {
	if delta < 1 {
		return ErrInvalidQuantity
	}

	prod, err := p.products.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	return p.update(ctx, owner, func(sc *sessionCart) {
		line, ok := sc.Lines[productID]
		if !ok {
			line = sessionLine{
				UnitPrice: prod.Price,
				Name:      prod.Name,
				Brand:     prod.Brand,
				ImageURL:  prod.ImageURL,
			}
		}
		line.Quantity += delta
		sc.Lines[productID] = line
	})
}

// AdjustQuantity moves a line by one unit; a line that reaches zero is dropped
func (p *EphemeralProvider) AdjustQuantity(ctx context.Context, owner shopper.Owner, productID uint, delta int) error {
	if delta != 1 && delta != -1 {
		return ErrInvalidQuantity
	}

	return p.update(ctx, owner, func(sc *sessionCart) {
		line, ok := sc.Lines[productID]
		if !ok {
			return
		}
		line.Quantity += delta
		if line.Quantity <= 0 {
			delete(sc.Lines, productID)
			return
		}
		sc.Lines[productID] = line
	})
}

// RemoveLine drops a product from the session cart
func (p *EphemeralProvider) RemoveLine(ctx context.Context, owner shopper.Owner, productID uint) error {
	return p.update(ctx, owner, func(sc *sessionCart) {
		delete(sc.Lines, productID)
	})
}

// Merge folds lines into the session cart
func (p *EphemeralProvider) Merge(ctx context.Context, owner shopper.Owner, lines []Line) error {
	return p.update(ctx, owner, func(sc *sessionCart) {
		for _, l := range lines {
			if l.Quantity < 1 {
				continue
			}
			existing, ok := sc.Lines[l.ProductID]
			if !ok {
				existing = sessionLine{
					UnitPrice: l.UnitPrice,
					Name:      l.Name,
					Brand:     l.Brand,
					ImageURL:  l.ImageURL,
				}
			}
			existing.Quantity += l.Quantity
			sc.Lines[l.ProductID] = existing
		}
	})
}

// Claim atomically takes the session cart out of Redis.
// A second claim of the same session finds nothing and gets ErrEmptyCart.
func (p *EphemeralProvider) Claim(ctx context.Context, _ *gorm.DB, owner shopper.Owner) (*Cart, error) {
	if owner.SessionID == "" {
		return nil, ErrNoOwner
	}

	data, err := p.rdb.GetDel(ctx, sessionKey(owner.SessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim session cart: %w", err)
	}

	sc, err := decodeSessionCart(data, owner.SessionID)
	if err != nil {
		return nil, err
	}
	if len(sc.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	return p.toCart(sc), nil
}

// MarkConverted has nothing to do; the claim already consumed the session cart
func (p *EphemeralProvider) MarkConverted(ctx context.Context, _ *gorm.DB, c *Cart) error {
	c.State = StateConverted
	return nil
}

// Release puts a claimed session cart back. If the shopper started a new cart
// in the meantime, the claimed lines are merged into it.
func (p *EphemeralProvider) Release(ctx context.Context, c *Cart) error {
	if c == nil || c.SessionID == "" {
		return nil
	}

	sc := &sessionCart{
		SessionID: c.SessionID,
		Lines:     make(map[uint]sessionLine, len(c.Lines)),
		CreatedAt: c.CreatedAt,
		UpdatedAt: p.clock.Now(),
	}
	for _, l := range c.Lines {
		sc.Lines[l.ProductID] = sessionLine{
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Name:      l.Name,
			Brand:     l.Brand,
			ImageURL:  l.ImageURL,
		}
	}

	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to encode session cart: %w", err)
	}

	restored, err := p.rdb.SetNX(ctx, sessionKey(c.SessionID), data, p.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to restore session cart: %w", err)
	}
	if restored {
		return nil
	}
	return p.Merge(ctx, shopper.Anonymous(c.SessionID), c.Lines)
}

// update applies fn to the session cart under WATCH and retries when another
// request changed the key first. Every write renews the session TTL.
func (p *EphemeralProvider) update(ctx context.Context, owner shopper.Owner, fn func(*sessionCart)) error {
	if owner.SessionID == "" {
		return ErrNoOwner
	}
	key := sessionKey(owner.SessionID)

	txf := func(tx *redis.Tx) error {
		sc, err := p.load(ctx, tx, owner.SessionID)
		if err != nil {
			return err
		}

		fn(sc)
		sc.UpdatedAt = p.clock.Now()

		data, err := json.Marshal(sc)
		if err != nil {
			return fmt.Errorf("failed to encode session cart: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, p.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := p.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return ErrConcurrentUpdate
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (p *EphemeralProvider) load(ctx context.Context, rdb stringGetter, sessionID string) (*sessionCart, error) {
	data, err := rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		now := p.clock.Now()
		return &sessionCart{
			SessionID: sessionID,
			Lines:     map[uint]sessionLine{},
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session cart: %w", err)
	}
	return decodeSessionCart(data, sessionID)
}

func decodeSessionCart(data []byte, sessionID string) (*sessionCart, error) {
	var sc sessionCart
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to decode session cart: %w", err)
	}
	if sc.Lines == nil {
		sc.Lines = map[uint]sessionLine{}
	}
	sc.SessionID = sessionID
	return &sc, nil
}

func (p *EphemeralProvider) toCart(sc *sessionCart) *Cart {
	c := &Cart{
		SessionID: sc.SessionID,
		State:     StateActive,
		CreatedAt: sc.CreatedAt,
		UpdatedAt: sc.UpdatedAt,
		ExpiresAt: sc.UpdatedAt.Add(p.ttl),
		Lines:     make([]Line, 0, len(sc.Lines)),
	}
	for productID, l := range sc.Lines {
		c.Lines = append(c.Lines, Line{
			ProductID: productID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Name:      l.Name,
			Brand:     l.Brand,
			ImageURL:  l.ImageURL,
		})
	}
	slices.SortFunc(c.Lines, func(a, b Line) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return c
}
