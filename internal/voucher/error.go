package voucher

import "errors"

var (
	ErrVoucherNotFound    = errors.New("voucher not found")
	ErrVoucherExpired     = errors.New("voucher expired or not yet active")
	ErrVoucherOutOfRange  = errors.New("order value outside voucher range")
	ErrVoucherAlreadyUsed = errors.New("voucher already used")
	ErrVoucherExhausted   = errors.New("voucher quantity exhausted")
)
