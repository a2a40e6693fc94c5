package cart

import "errors"

var (
	// ErrEmptyCart means there is no active cart with at least one line to work on
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidQuantity is returned for quantity deltas the operation does not accept
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrCartExpired is logged when an expired cart is replaced. Callers never see it.
	ErrCartExpired = errors.New("cart expired")
	// ErrNoOwner is returned when the owner has neither a user id nor a session
	ErrNoOwner = errors.New("cart owner required")
	// ErrConcurrentUpdate is returned when a session cart kept changing under an update
	ErrConcurrentUpdate = errors.New("cart modified concurrently")
	// ErrUnknownOperation is returned for a cart operation name that is not recognised
	ErrUnknownOperation = errors.New("unknown cart operation")
	// errCartClosed means the resolved cart left the active state before a write could lock it
	errCartClosed = errors.New("cart no longer active")
)
