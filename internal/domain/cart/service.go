// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/your-org/watchstore-backend/internal/domain/shopper"
)

// Operation is a cart mutation requested by the shopper
type Operation string

const (
	OpAdd       Operation = "add"
	OpIncrement Operation = "increment"
	OpDecrement Operation = "decrement"
	OpRemove    Operation = "remove"
)

// ParseOperation validates an operation name
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OpAdd, OpIncrement, OpDecrement, OpRemove:
		return op, nil
	}
	return "", ErrUnknownOperation
}

// Service handles cart business logic, routing each owner to its backend
type Service struct {
	durable   Provider
	ephemeral Provider
	logger    *logrus.Logger
}

// NewService creates a new cart service
func NewService(durable, ephemeral Provider, logger *logrus.Logger) *Service {
	return &Service{
		durable:   durable,
		ephemeral: ephemeral,
		logger:    logger,
	}
}

// ProviderFor selects the durable backend for identified owners and the
// session backend for everyone else
func (s *Service) ProviderFor(owner shopper.Owner) (Provider, error) {
	switch {
	case !owner.Valid():
		return nil, ErrNoOwner
	case owner.Identified():
		return s.durable, nil
	default:
		return s.ephemeral, nil
	}
}

// ViewCart returns the owner's active cart with derived totals
func (s *Service) ViewCart(ctx context.Context, owner shopper.Owner) (*View, error) {
	p, err := s.ProviderFor(owner)
	if err != nil {
		return nil, err
	}

	c, err := p.Active(ctx, owner)
	if err != nil {
		return nil, err
	}
	return NewView(c), nil
}

// MutateCart applies op to the owner's line for productID and returns the updated cart
func (s *Service) MutateCart(ctx context.Context, owner shopper.Owner, productID uint, op Operation) (*View, error) {
	p, err := s.ProviderFor(owner)
	if err != nil {
		return nil, err
	}

	switch op {
	case OpAdd:
		err = p.AddLine(ctx, owner, productID, 1)
	case OpIncrement:
		err = p.AdjustQuantity(ctx, owner, productID, 1)
	case OpDecrement:
		err = p.AdjustQuantity(ctx, owner, productID, -1)
	case OpRemove:
		err = p.RemoveLine(ctx, owner, productID)
	default:
		err = ErrUnknownOperation
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"owner":      owner.String(),
		"product_id": productID,
		"operation":  op,
	}).Debug("Cart updated")

	return s.ViewCart(ctx, owner)
}

// MergeGuestCart moves a guest session cart into the user's active cart when the
// guest signs in. Session prices stay frozen on lines the user did not have yet.
func (s *Service) MergeGuestCart(ctx context.Context, sessionID string, userID uint) (int, error) {
	if sessionID == "" || userID == 0 {
		return 0, ErrNoOwner
	}

	guest, err := s.ephemeral.Claim(ctx, nil, shopper.Anonymous(sessionID))
	if errors.Is(err, ErrEmptyCart) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	if err := s.durable.Merge(ctx, shopper.User(userID), guest.Lines); err != nil {
		// the guest cart is already out of Redis; put it back even if ctx is done
		if rerr := s.ephemeral.Release(context.WithoutCancel(ctx), guest); rerr != nil {
			s.logger.WithError(rerr).WithField("session_id", sessionID).Error("Failed to restore guest cart")
		}
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    userID,
		"lines":      len(guest.Lines),
	}).Info("Guest cart merged")

	return len(guest.Lines), nil
}
