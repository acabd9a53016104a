package voucher

import (
	"time"

	"github.com/google/uuid"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

type Voucher struct {
	ID           uuid.UUID
	Code         string
	DiscountType DiscountType

	// Percentage value (0-100) or fixed amount, depending on DiscountType.
	Value int64

	MinOrderValue int64
	MaxOrderValue int64 // 0 means no upper bound

	// Cap for percentage discounts; nil means uncapped.
	MaxDiscountAmount *int64

	StartDate time.Time
	EndDate   time.Time
	Remaining int
	IsActive  bool
}

// Redemption records that a user has consumed their single lifetime voucher.
type Redemption struct {
	UserID     uint
	VoucherID  uuid.UUID
	RedeemedAt time.Time
}
