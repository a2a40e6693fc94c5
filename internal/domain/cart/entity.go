// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/your-org/watchstore-backend/internal/domain/catalog"
)

// State is the lifecycle state of a cart
type State string

const (
	StateActive    State = "active"
	StateExpired   State = "expired"
	StateConverted State = "converted"
)

// Cart represents a shopper's cart.
// Durable carts belong to a user and live in the database; at most one of them is active per user.
// Session carts live in Redis and carry a SessionID instead.
type Cart struct {
	ID        uint      `gorm:"primaryKey" json:"id,omitempty"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_carts_active_owner,where:state = 'active'" json:"user_id,omitempty"`
	State     State     `gorm:"size:20;not null;default:'active';index" json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	SessionID string    `gorm:"-" json:"session_id,omitempty"`
	Lines     []Line    `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"lines"`
}

// TableName overrides the table name
func (Cart) TableName() string {
	return "carts"
}

// Expired reports whether the cart's lifetime has run out at now
func (c *Cart) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Total sums the line subtotals
func (c *Cart) Total() int64 {
	var total int64
	for i := range c.Lines {
		total += c.Lines[i].Subtotal()
	}
	return total
}

// ItemCount sums the line quantities
func (c *Cart) ItemCount() int {
	n := 0
	for i := range c.Lines {
		n += c.Lines[i].Quantity
	}
	return n
}

// Empty reports whether the cart has no lines
func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}

// Line is one product in a cart. UnitPrice is frozen when the line is first added.
type Line struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_lines_cart_product,priority:1" json:"-"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_lines_cart_product,priority:2" json:"product_id"`
	Quantity  int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice int64     `gorm:"not null" json:"unit_price"` // Price at time of first add
	Name      string    `gorm:"size:255" json:"name"`
	Brand     string    `gorm:"size:100" json:"brand"`
	ImageURL  string    `gorm:"size:500" json:"image_url"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName overrides the table name
func (Line) TableName() string {
	return "cart_lines"
}

// Subtotal is always derived from quantity and the frozen unit price
func (l *Line) Subtotal() int64 {
	return int64(l.Quantity) * l.UnitPrice
}

func newLine(p *catalog.Product, qty int) *Line {
	return &Line{
		ProductID: p.ID,
		Quantity:  qty,
		UnitPrice: p.Price,
		Name:      p.Name,
		Brand:     p.Brand,
		ImageURL:  p.ImageURL,
	}
}

// View is the cart as presented to the shopper
type View struct {
	CartID     uint       `json:"cart_id,omitempty"`
	State      State      `json:"state"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Items      []LineView `json:"cart_items"`
	TotalPrice int64      `json:"total_price"`
	TotalItems int        `json:"total_items"`
}

// LineView is a cart line with its derived subtotal
type LineView struct {
	ProductID uint   `json:"id"`
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
	ImageURL  string `json:"image_url"`
}

// NewView renders a cart for the shopper
func NewView(c *Cart) *View {
	v := &View{
		CartID:     c.ID,
		State:      c.State,
		ExpiresAt:  c.ExpiresAt,
		Items:      make([]LineView, 0, len(c.Lines)),
		TotalPrice: c.Total(),
		TotalItems: c.ItemCount(),
	}
	for i := range c.Lines {
		l := &c.Lines[i]
		v.Items = append(v.Items, LineView{
			ProductID: l.ProductID,
			Name:      l.Name,
			Brand:     l.Brand,
			Price:     l.UnitPrice,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal(),
			ImageURL:  l.ImageURL,
		})
	}
	return v
}
