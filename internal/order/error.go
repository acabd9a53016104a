package order

import "errors"

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidStateTransition = errors.New("invalid order state transition")
	ErrUnauthorized           = errors.New("unauthorized")
)
