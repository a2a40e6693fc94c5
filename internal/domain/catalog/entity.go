// internal/domain/catalog/entity.go
package catalog

import (
	"errors"
	"time"
)

// ErrProductNotFound is returned when a product id does not resolve to a product
var ErrProductNotFound = errors.New("product not found")

// Product is the catalog view the cart and checkout need: display fields, price and stock.
// Price is stored in cents.
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	Brand     string    `gorm:"size:100;index" json:"brand"`
	ImageURL  string    `gorm:"size:500" json:"image_url"`
	Price     int64     `gorm:"not null" json:"price"`
	Stock     int       `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Product) TableName() string {
	return "products"
}

// InStock reports whether qty units can be taken from the current stock
func (p *Product) InStock(qty int) bool {
	return qty <= p.Stock
}
