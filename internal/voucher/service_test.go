package voucher

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByCode(ctx context.Context, code string) (*Voucher, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Voucher), args.Error(1)
}

func (m *MockRepository) HasRedemption(ctx context.Context, userID uint) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Redeem(ctx context.Context, tx *sql.Tx, voucherID uuid.UUID, userID uint) error {
	args := m.Called(ctx, tx, voucherID, userID)
	return args.Error(0)
}

func activeVoucher() *Voucher {
	cap := int64(50000)
	return &Voucher{
		ID:                uuid.New(),
		Code:              "SAVE10",
		DiscountType:      DiscountPercentage,
		Value:             10,
		MinOrderValue:     100000,
		MaxDiscountAmount: &cap,
		StartDate:         time.Now().Add(-time.Hour),
		EndDate:           time.Now().Add(time.Hour),
		Remaining:         5,
		IsActive:          true,
	}
}

func TestService_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		v := activeVoucher()
		repo.On("GetByCode", ctx, "SAVE10").Return(v, nil)
		repo.On("HasRedemption", ctx, uint(1)).Return(false, nil)

		got, err := svc.Validate(ctx, "SAVE10", 1, 300000)
		assert.NoError(t, err)
		assert.Equal(t, v.Code, got.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("GetByCode", ctx, "NOPE").Return(nil, ErrVoucherNotFound)

		_, err := svc.Validate(ctx, "NOPE", 1, 300000)
		assert.ErrorIs(t, err, ErrVoucherNotFound)
	})

	t.Run("Expired", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		v := activeVoucher()
		v.EndDate = time.Now().Add(-time.Minute)
		repo.On("GetByCode", ctx, "SAVE10").Return(v, nil)

		_, err := svc.Validate(ctx, "SAVE10", 1, 300000)
		assert.ErrorIs(t, err, ErrVoucherExpired)
	})

	t.Run("Exhausted", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		v := activeVoucher()
		v.Remaining = 0
		repo.On("GetByCode", ctx, "SAVE10").Return(v, nil)

		_, err := svc.Validate(ctx, "SAVE10", 1, 300000)
		assert.ErrorIs(t, err, ErrVoucherExpired)
	})

	t.Run("BelowMinimum", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("GetByCode", ctx, "SAVE10").Return(activeVoucher(), nil)

		_, err := svc.Validate(ctx, "SAVE10", 1, 99999)
		assert.ErrorIs(t, err, ErrVoucherOutOfRange)
	})

	t.Run("AlreadyUsed", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("GetByCode", ctx, "SAVE10").Return(activeVoucher(), nil)
		repo.On("HasRedemption", ctx, uint(1)).Return(true, nil)

		_, err := svc.Validate(ctx, "SAVE10", 1, 300000)
		assert.ErrorIs(t, err, ErrVoucherAlreadyUsed)
	})
}

func TestService_ComputeDiscount(t *testing.T) {
	svc := NewService(new(MockRepository))

	t.Run("PercentageUnderCap", func(t *testing.T) {
		// 10% of 300,000 = 30,000 <= cap 50,000
		assert.Equal(t, int64(30000), svc.ComputeDiscount(activeVoucher(), 300000))
	})

	t.Run("PercentageHitsCap", func(t *testing.T) {
		// 10% of 900,000 = 90,000, capped at 50,000
		assert.Equal(t, int64(50000), svc.ComputeDiscount(activeVoucher(), 900000))
	})

	t.Run("PercentageUncapped", func(t *testing.T) {
		v := activeVoucher()
		v.MaxDiscountAmount = nil
		assert.Equal(t, int64(90000), svc.ComputeDiscount(v, 900000))
	})

	t.Run("FixedBelowOrderValue", func(t *testing.T) {
		v := &Voucher{DiscountType: DiscountFixed, Value: 20000}
		assert.Equal(t, int64(20000), svc.ComputeDiscount(v, 150000))
	})

	t.Run("FixedCappedAtOrderValue", func(t *testing.T) {
		v := &Voucher{DiscountType: DiscountFixed, Value: 200000}
		assert.Equal(t, int64(150000), svc.ComputeDiscount(v, 150000))
	})

	t.Run("NilVoucher", func(t *testing.T) {
		assert.Equal(t, int64(0), svc.ComputeDiscount(nil, 150000))
	})

	t.Run("NeverNegative", func(t *testing.T) {
		v := &Voucher{DiscountType: DiscountFixed, Value: -500}
		assert.Equal(t, int64(0), svc.ComputeDiscount(v, 150000))
	})
}
