package cart

import "errors"

var (
	ErrCartEmpty        = errors.New("cart is empty")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("invalid cart quantity")
	ErrNoCartIdentity   = errors.New("no user or guest token on request")
)
