// internal/domain/order/entity.go
package order

import (
	"encoding/json"
	"fmt"
	"time"
)

// ShipmentStatus represents the shipment status
type ShipmentStatus string

const (
	ShipmentStatusPending ShipmentStatus = "pending"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	// PaymentStatusApproved is the only status recorded; no gateway is involved
	PaymentStatusApproved PaymentStatus = "approved"
)

// Order is the immutable record of a committed cart
type Order struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderNumber string `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      *uint  `gorm:"index" json:"user_id"` // Nullable for guest orders
	SessionID   string `gorm:"size:64;index" json:"-"`
	CartID      *uint  `gorm:"uniqueIndex" json:"cart_id,omitempty"` // Guest carts have no row
	ShipmentID  uint   `gorm:"not null;uniqueIndex" json:"shipment_id"`

	// Financial Information
	Subtotal int64 `gorm:"not null" json:"subtotal"` // In cents
	Total    int64 `gorm:"not null" json:"total"`    // Equals subtotal

	CreatedAt time.Time `json:"created_at"`

	// Relationships
	Lines    []Line    `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"lines"`
	Shipment *Shipment `gorm:"foreignKey:ShipmentID" json:"shipment,omitempty"`
	Payment  *Payment  `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
}

// Line is one product of an order, with quantity and price copied from the cart
type Line struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	Brand     string    `gorm:"size:100" json:"brand"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UnitPrice int64     `gorm:"not null" json:"unit_price"` // Price per unit in cents
	CreatedAt time.Time `json:"created_at"`
}

// Shipment holds a snapshot of the delivery address
type Shipment struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Status     ShipmentStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	Recipient  string         `gorm:"size:200" json:"recipient"`
	Line1      string         `gorm:"size:255" json:"address_line1"`
	Line2      string         `gorm:"size:255" json:"address_line2"`
	City       string         `gorm:"size:100" json:"city"`
	State      string         `gorm:"size:100" json:"state"`
	PostalCode string         `gorm:"size:20" json:"postal_code"`
	Country    string         `gorm:"size:2" json:"country"`
	Phone      string         `gorm:"size:30" json:"phone"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Payment is recorded as already settled
type Payment struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	OrderID     uint          `gorm:"not null;uniqueIndex" json:"order_id"`
	Method      string        `gorm:"not null;size:50" json:"method"`
	Amount      int64         `gorm:"not null" json:"amount"` // In cents
	Status      PaymentStatus `gorm:"size:20;not null" json:"status"`
	ProcessedAt time.Time     `json:"processed_at"`
	CreatedAt   time.Time     `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string    { return "orders" }
func (Line) TableName() string     { return "order_lines" }
func (Shipment) TableName() string { return "shipments" }
func (Payment) TableName() string  { return "payments" }

// Subtotal is derived from the copied quantity and unit price
func (l *Line) Subtotal() int64 {
	return int64(l.Quantity) * l.UnitPrice
}

// MarshalJSON adds the derived subtotal
func (l Line) MarshalJSON() ([]byte, error) {
	type line Line
	return json.Marshal(struct {
		line
		Subtotal int64 `json:"subtotal"`
	}{line(l), l.Subtotal()})
}

// orderNumber formats ORD-YYYYMMDD-XXXXX
func orderNumber(createdAt time.Time, id uint) string {
	return fmt.Sprintf("ORD-%s-%05d", createdAt.Format("20060102"), id)
}

// ReturnEligible reports whether a return may still be requested at now.
// The deadline is always derived from the creation time, never stored.
func ReturnEligible(o *Order, now time.Time, window time.Duration) bool {
	return !now.After(o.CreatedAt.Add(window))
}
