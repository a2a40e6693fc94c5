// internal/domain/address/service.go
package address

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/watchstore-backend/internal/domain/shopper"
	"gorm.io/gorm"
)

// Book resolves addresses on behalf of their owner
type Book interface {
	GetAddress(ctx context.Context, id uint, owner shopper.Owner) (*Address, error)
}

// Service handles address lookups
type Service struct {
	db *gorm.DB
}

// NewService creates a new address service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetAddress retrieves an address that belongs to owner.
// Anonymous owners have no address book.
func (s *Service) GetAddress(ctx context.Context, id uint, owner shopper.Owner) (*Address, error) {
	if !owner.Identified() {
		return nil, shopper.ErrNotFoundOrForbidden
	}

	var addr Address
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, owner.UserID).First(&addr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shopper.ErrNotFoundOrForbidden
		}
		return nil, fmt.Errorf("failed to retrieve address: %w", err)
	}

	return &addr, nil
}

// ListAddresses retrieves all addresses of an identified owner, newest first
func (s *Service) ListAddresses(ctx context.Context, owner shopper.Owner) ([]Address, error) {
	if !owner.Identified() {
		return []Address{}, nil
	}

	var addresses []Address
	if err := s.db.WithContext(ctx).Where("user_id = ?", owner.UserID).
		Order("created_at DESC, id DESC").Find(&addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve addresses: %w", err)
	}

	return addresses, nil
}
