// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/your-org/watchstore-backend/internal/domain/catalog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lowStockLevel is the stock at or below which a sale logs a warning
const lowStockLevel = 1

// Service handles stock changes and the movement ledger
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// PurchaseRequest represents a supplier restock
type PurchaseRequest struct {
	Supplier string                `json:"supplier" binding:"required"`
	Lines    []PurchaseLineRequest `json:"lines"`
}

// PurchaseLineRequest represents one product in a restock
type PurchaseLineRequest struct {
	ProductID uint  `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
	UnitCost  int64 `json:"unit_cost" binding:"min=0"`
}

// LockProducts row-locks the given products inside tx, in ascending id order so
// concurrent checkouts over overlapping products cannot deadlock.
func (s *Service) LockProducts(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]*catalog.Product, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var products []catalog.Product
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id ASC").
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}

	locked := make(map[uint]*catalog.Product, len(products))
	for i := range products {
		locked[products[i].ID] = &products[i]
	}
	for _, id := range sorted {
		if _, ok := locked[id]; !ok {
			return nil, fmt.Errorf("product %d: %w", id, catalog.ErrProductNotFound)
		}
	}
	return locked, nil
}

// Decrement takes qty units of a locked product for an order and records the sale
func (s *Service) Decrement(ctx context.Context, tx *gorm.DB, p *catalog.Product, qty int, orderID uint) (*Movement, error) {
	result := tx.WithContext(ctx).Model(&catalog.Product{}).
		Where("id = ? AND stock >= ?", p.ID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &InsufficientStockError{ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: qty}
	}

	movement := &Movement{
		ProductID:        p.ID,
		MovementType:     MovementTypeOutbound,
		Reason:           ReasonSale,
		Quantity:         qty,
		PreviousQuantity: p.Stock,
		NewQuantity:      p.Stock - qty,
		ReferenceType:    "order",
		ReferenceID:      orderID,
	}
	if err := tx.WithContext(ctx).Create(movement).Error; err != nil {
		return nil, fmt.Errorf("failed to record movement: %w", err)
	}
	p.Stock -= qty

	if p.Stock <= lowStockLevel {
		s.logger.WithFields(logrus.Fields{
			"product_id": p.ID,
			"stock":      p.Stock,
		}).Warn("Product is running low")
	}
	return movement, nil
}

// RecordPurchase applies a supplier restock: stock goes up, an inbound movement
// is written per line and the purchase is stored with its total cost.
func (s *Service) RecordPurchase(ctx context.Context, req *PurchaseRequest, userID uint) (*Purchase, error) {
	lines := make([]PurchaseLine, 0, len(req.Lines))
	ids := make([]uint, 0, len(req.Lines))
	var total int64
	for _, l := range req.Lines {
		if l.Quantity <= 0 {
			continue
		}
		line := PurchaseLine{ProductID: l.ProductID, Quantity: l.Quantity, UnitCost: l.UnitCost}
		total += line.Subtotal()
		lines = append(lines, line)
		ids = append(ids, l.ProductID)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyPurchase
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	locked, err := s.LockProducts(ctx, tx, ids)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	purchase := &Purchase{
		Supplier:  req.Supplier,
		TotalCost: total,
		CreatedBy: userID,
		Lines:     lines,
	}
	if err := tx.Create(purchase).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	for _, l := range lines {
		p := locked[l.ProductID]
		if err := tx.Model(&catalog.Product{}).Where("id = ?", p.ID).
			Update("stock", gorm.Expr("stock + ?", l.Quantity)).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to increment stock: %w", err)
		}

		movement := &Movement{
			ProductID:        p.ID,
			MovementType:     MovementTypeInbound,
			Reason:           ReasonPurchase,
			Quantity:         l.Quantity,
			PreviousQuantity: p.Stock,
			NewQuantity:      p.Stock + l.Quantity,
			ReferenceType:    "purchase",
			ReferenceID:      purchase.ID,
		}
		if err := tx.Create(movement).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to record movement: %w", err)
		}
		p.Stock += l.Quantity
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit purchase: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"purchase_id": purchase.ID,
		"supplier":    purchase.Supplier,
		"total_cost":  purchase.TotalCost,
	}).Info("Supplier purchase recorded")

	return purchase, nil
}

// Purchases returns the supplier purchase history with lines, newest first
func (s *Service) Purchases(ctx context.Context) ([]Purchase, error) {
	var purchases []Purchase
	if err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC, id DESC").
		Find(&purchases).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve purchases: %w", err)
	}
	return purchases, nil
}

// Movements returns a product's stock ledger, newest first
func (s *Service) Movements(ctx context.Context, productID uint) ([]Movement, error) {
	var movements []Movement
	if err := s.db.WithContext(ctx).Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve movements: %w", err)
	}
	return movements, nil
}
