// internal/domain/inventory/entity.go
package inventory

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInsufficientStock matches every *InsufficientStockError
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrEmptyPurchase is returned for a purchase without any positive quantity line
	ErrEmptyPurchase = errors.New("purchase has no lines")
)

// InsufficientStockError names the product that cannot cover the requested quantity
type InsufficientStockError struct {
	ProductID uint
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (product %d): available %d, requested %d",
		e.Name, e.ProductID, e.Available, e.Requested)
}

// Is lets errors.Is match ErrInsufficientStock
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// MovementType represents the type of inventory movement
type MovementType string

const (
	MovementTypeInbound  MovementType = "inbound"  // Supplier purchase
	MovementTypeOutbound MovementType = "outbound" // Sale
)

// MovementReason represents the reason for inventory movement
type MovementReason string

const (
	ReasonSale     MovementReason = "sale"
	ReasonPurchase MovementReason = "purchase"
)

// Movement is an append-only record of a stock change
type Movement struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ProductID        uint           `gorm:"not null;index" json:"product_id"`
	MovementType     MovementType   `gorm:"size:20;not null" json:"movement_type"`
	Reason           MovementReason `gorm:"size:20;not null" json:"reason"`
	Quantity         int            `gorm:"not null" json:"quantity"`
	PreviousQuantity int            `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int            `gorm:"not null" json:"new_quantity"`
	ReferenceType    string         `gorm:"size:50" json:"reference_type"` // "order", "purchase"
	ReferenceID      uint           `gorm:"index" json:"reference_id"`
	CreatedAt        time.Time      `json:"created_at"`
}

// TableName overrides the table name
func (Movement) TableName() string {
	return "inventory_movements"
}

// Purchase is a supplier restock
type Purchase struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Supplier  string         `gorm:"size:200;not null" json:"supplier"`
	TotalCost int64          `gorm:"not null" json:"total_cost"` // In cents
	CreatedBy uint           `gorm:"index" json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	Lines     []PurchaseLine `gorm:"foreignKey:PurchaseID" json:"lines"`
}

// TableName overrides the table name
func (Purchase) TableName() string {
	return "purchases"
}

// PurchaseLine is one product received in a purchase
type PurchaseLine struct {
	ID         uint  `gorm:"primaryKey" json:"id"`
	PurchaseID uint  `gorm:"not null;index" json:"purchase_id"`
	ProductID  uint  `gorm:"not null;index" json:"product_id"`
	Quantity   int   `gorm:"not null" json:"quantity"`
	UnitCost   int64 `gorm:"not null" json:"unit_cost"`
}

// TableName overrides the table name
func (PurchaseLine) TableName() string {
	return "purchase_lines"
}

// Subtotal is the line's cost
func (l *PurchaseLine) Subtotal() int64 {
	return int64(l.Quantity) * l.UnitCost
}
