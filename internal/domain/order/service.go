// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/watchstore-backend/internal/config"
	"github.com/your-org/watchstore-backend/internal/domain/shopper"
	"github.com/your-org/watchstore-backend/internal/pkg/clock"
	"gorm.io/gorm"
)

// Service handles order reads
type Service struct {
	db           *gorm.DB
	clock        clock.Clock
	returnWindow time.Duration
}

// NewService creates a new order service
func NewService(db *gorm.DB, clk clock.Clock, cfg *config.Config) *Service {
	return &Service{
		db:           db,
		clock:        clk,
		returnWindow: cfg.Order.ReturnWindow,
	}
}

// Eligibility is the outcome of a return window check
type Eligibility struct {
	OrderID  uint      `json:"order_id"`
	Eligible bool      `json:"eligible"`
	Deadline time.Time `json:"deadline"`
}

// GetOrder retrieves an order with its lines, shipment and payment.
// Orders owned by someone else look exactly like missing ones.
func (s *Service) GetOrder(ctx context.Context, id uint, owner shopper.Owner) (*Order, error) {
	var o Order
	err := s.ownedBy(s.db.WithContext(ctx), owner).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("product_id ASC") }).
		Preload("Shipment").
		Preload("Payment").
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shopper.ErrNotFoundOrForbidden
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// ListOrders retrieves the owner's orders, newest first
func (s *Service) ListOrders(ctx context.Context, owner shopper.Owner) ([]Order, error) {
	var orders []Order
	if err := s.ownedBy(s.db.WithContext(ctx), owner).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("product_id ASC") }).
		Order("created_at DESC, id DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}
	return orders, nil
}

// ReturnEligibility evaluates the return window for one of the owner's orders
func (s *Service) ReturnEligibility(ctx context.Context, id uint, owner shopper.Owner) (*Eligibility, error) {
	o, err := s.GetOrder(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	return &Eligibility{
		OrderID:  o.ID,
		Eligible: ReturnEligible(o, s.clock.Now(), s.returnWindow),
		Deadline: o.CreatedAt.Add(s.returnWindow),
	}, nil
}

// ownedBy scopes a query to orders visible to owner
func (s *Service) ownedBy(db *gorm.DB, owner shopper.Owner) *gorm.DB {
	switch {
	case owner.Identified():
		return db.Where("user_id = ?", owner.UserID)
	case owner.SessionID != "":
		return db.Where("user_id IS NULL AND session_id = ?", owner.SessionID)
	default:
		return db.Where("1 = 0")
	}
}
