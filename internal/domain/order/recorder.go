// internal/domain/order/recorder.go
package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/your-org/watchstore-backend/internal/domain/address"
	"github.com/your-org/watchstore-backend/internal/domain/shopper"
	"github.com/your-org/watchstore-backend/internal/pkg/clock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Draft is everything needed to record an order for a claimed cart
type Draft struct {
	Owner         shopper.Owner
	CartID        *uint
	Address       *address.Address
	PaymentMethod string
	Lines         []DraftLine
}

// DraftLine is a cart line as claimed at commit time
type DraftLine struct {
	ProductID uint
	Name      string
	Brand     string
	Quantity  int
	UnitPrice int64
}

// Total sums the draft's line subtotals
func (d *Draft) Total() int64 {
	var total int64
	for _, l := range d.Lines {
		total += int64(l.Quantity) * l.UnitPrice
	}
	return total
}

// Recorder writes the shipment, order, lines and payment of a commit
type Recorder struct {
	clock clock.Clock
}

// NewRecorder creates a new order recorder
func NewRecorder(clk clock.Clock) *Recorder {
	return &Recorder{clock: clk}
}

// Record creates the downstream records inside the caller's transaction.
// It never commits; the caller owns tx.
func (r *Recorder) Record(ctx context.Context, tx *gorm.DB, d *Draft) (*Order, error) {
	if len(d.Lines) == 0 {
		return nil, fmt.Errorf("order draft has no lines")
	}
	db := tx.WithContext(ctx)
	now := r.clock.Now()
	total := d.Total()

	shipment := &Shipment{
		Status:     ShipmentStatusPending,
		Recipient:  d.Address.Recipient,
		Line1:      d.Address.Line1,
		Line2:      d.Address.Line2,
		City:       d.Address.City,
		State:      d.Address.State,
		PostalCode: d.Address.PostalCode,
		Country:    d.Address.Country,
		Phone:      d.Address.Phone,
		CreatedAt:  now,
	}
	if err := db.Create(shipment).Error; err != nil {
		return nil, fmt.Errorf("failed to create shipment: %w", err)
	}

	o := &Order{
		// placeholder until the id is known
		OrderNumber: uuid.NewString(),
		SessionID:   d.Owner.SessionID,
		CartID:      d.CartID,
		ShipmentID:  shipment.ID,
		Subtotal:    total,
		Total:       total,
		CreatedAt:   now,
	}
	if d.Owner.Identified() {
		userID := d.Owner.UserID
		o.UserID = &userID
		o.SessionID = ""
	}
	if err := db.Omit(clause.Associations).Create(o).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	o.OrderNumber = orderNumber(now, o.ID)
	if err := db.Model(o).Update("order_number", o.OrderNumber).Error; err != nil {
		return nil, fmt.Errorf("failed to update order number: %w", err)
	}

	lines := make([]Line, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, Line{
			OrderID:   o.ID,
			ProductID: l.ProductID,
			Name:      l.Name,
			Brand:     l.Brand,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			CreatedAt: now,
		})
	}
	if err := db.Create(&lines).Error; err != nil {
		return nil, fmt.Errorf("failed to create order lines: %w", err)
	}

	payment := &Payment{
		OrderID:     o.ID,
		Method:      d.PaymentMethod,
		Amount:      total,
		Status:      PaymentStatusApproved,
		ProcessedAt: now,
		CreatedAt:   now,
	}
	if err := db.Create(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	o.Lines = lines
	o.Shipment = shipment
	o.Payment = payment
	return o, nil
}
