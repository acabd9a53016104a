package payment

import "errors"

var (
	ErrInvalidSignature = errors.New("invalid gateway signature")
	ErrSessionNotFound  = errors.New("payment session not found")
	ErrSessionExpired   = errors.New("payment session expired")
	ErrAmountMismatch   = errors.New("callback amount does not match session")
)
