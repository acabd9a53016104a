package voucher

import (
	"context"
	"time"

	"shopora-be/internal/logger"

	"go.uber.org/zap"
)

// Service validates vouchers and computes discounts. Validation is advisory:
// the binding redemption happens inside the order-creation transaction via
// Repository.Redeem.
type Service interface {
	Validate(ctx context.Context, code string, userID uint, orderValue int64) (*Voucher, error)
	ComputeDiscount(v *Voucher, orderValue int64) int64
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Validate(
	ctx context.Context,
	code string,
	userID uint,
	orderValue int64,
) (*Voucher, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ValidateVoucher"),
		zap.String("code", code),
		zap.Uint("user_id", userID),
	)

	v, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		log.Warn("voucher lookup failed", zap.Error(err))
		return nil, err
	}

	now := s.now()
	if !v.IsActive || now.Before(v.StartDate) || now.After(v.EndDate) || v.Remaining <= 0 {
		log.Warn("voucher not currently redeemable",
			zap.Bool("active", v.IsActive),
			zap.Int("remaining", v.Remaining),
		)
		return nil, ErrVoucherExpired
	}

	if orderValue < v.MinOrderValue || (v.MaxOrderValue > 0 && orderValue > v.MaxOrderValue) {
		log.Warn("order value outside voucher range",
			zap.Int64("order_value", orderValue),
			zap.Int64("min", v.MinOrderValue),
			zap.Int64("max", v.MaxOrderValue),
		)
		return nil, ErrVoucherOutOfRange
	}

	used, err := s.repo.HasRedemption(ctx, userID)
	if err != nil {
		return nil, err
	}
	if used {
		log.Warn("user already redeemed a voucher")
		return nil, ErrVoucherAlreadyUsed
	}

	return v, nil
}

// ComputeDiscount never returns a negative amount and never exceeds the order
// value.
func (s *service) ComputeDiscount(v *Voucher, orderValue int64) int64 {
	if v == nil || orderValue <= 0 {
		return 0
	}

	var discount int64
	switch v.DiscountType {
	case DiscountPercentage:
		discount = orderValue * v.Value / 100
		if v.MaxDiscountAmount != nil && discount > *v.MaxDiscountAmount {
			discount = *v.MaxDiscountAmount
		}
	case DiscountFixed:
		discount = v.Value
	}

	if discount < 0 {
		return 0
	}
	if discount > orderValue {
		return orderValue
	}
	return discount
}
