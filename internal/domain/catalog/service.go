// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Reader looks up products by id
type Reader interface {
	GetProduct(ctx context.Context, id uint) (*Product, error)
}

// Service is the gorm backed catalog reader
type Service struct {
	db  *gorm.DB
	sfg singleflight.Group
}

// NewService creates a new catalog service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetProduct retrieves a product by ID.
// Concurrent lookups of the same product share one query. The shared query
// runs detached from any single caller, so a caller that gives up only fails
// its own lookup.
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	ch := s.sfg.DoChan(strconv.FormatUint(uint64(id), 10), func() (interface{}, error) {
		return s.load(detached, id)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// shared result; hand each caller its own copy
		p := *res.Val.(*Product)
		return &p, nil
	}
}

func (s *Service) load(ctx context.Context, id uint) (*Product, error) {
	var p Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return &p, nil
}

// ListProducts returns all products ordered by id
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}
