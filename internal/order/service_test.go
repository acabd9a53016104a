package order

import (
	"context"
	"database/sql"
	"testing"

	"shopora-be/internal/stock"
	"shopora-be/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateOrderTx(ctx context.Context, o *Order, redeem func(context.Context, *sql.Tx) error) error {
	args := m.Called(ctx, o, redeem)
	return args.Error(0)
}

func (m *MockRepository) GetByCode(ctx context.Context, orderCode string) (*Order, error) {
	args := m.Called(ctx, orderCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) FetchOrders(ctx context.Context, filter *OrderFilterInput, sort *OrderSortInput, limit, offset int32) ([]*Order, error) {
	args := m.Called(ctx, filter, sort, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

func (m *MockRepository) Transition(ctx context.Context, orderCode string, to OrderStatus, from []OrderStatus) (bool, error) {
	args := m.Called(ctx, orderCode, to, from)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) MarkPaid(ctx context.Context, orderCode, gatewayTxnID string) (bool, error) {
	args := m.Called(ctx, orderCode, gatewayTxnID)
	return args.Bool(0), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Reserve(ctx context.Context, variantID string, quantity int) error {
	args := m.Called(ctx, variantID, quantity)
	return args.Error(0)
}

func (m *MockLedger) Release(ctx context.Context, variantID string, quantity int) error {
	args := m.Called(ctx, variantID, quantity)
	return args.Error(0)
}

func (m *MockLedger) ReserveAll(ctx context.Context, lines []stock.Line) error {
	args := m.Called(ctx, lines)
	return args.Error(0)
}

func (m *MockLedger) ReleaseAll(ctx context.Context, lines []stock.Line) error {
	args := m.Called(ctx, lines)
	return args.Error(0)
}

func (m *MockLedger) VariantForCheckout(ctx context.Context, variantID string) (*stock.Variant, error) {
	args := m.Called(ctx, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stock.Variant), args.Error(1)
}

func userCtx(userID uint) context.Context {
	return utils.SetUserContext(context.Background(), userID, "u@example.com", utils.RoleUser)
}

func adminCtx() context.Context {
	return utils.SetUserContext(context.Background(), 99, "a@example.com", utils.RoleAdmin)
}

func pendingOrder() *Order {
	return &Order{
		ID:        1,
		OrderCode: "ORD-1",
		UserID:    7,
		Status:    StatusPending,
		Items: []OrderItem{
			{VariantID: "v1", Quantity: 2},
			{VariantID: "v2", Quantity: 1},
		},
	}
}

func TestService_GetOrderDetail(t *testing.T) {
	t.Run("OwnerSeesOrder", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockLedger))

		repo.On("GetByCode", mock.Anything, "ORD-1").Return(pendingOrder(), nil)

		o, err := svc.GetOrderDetail(userCtx(7), "ORD-1")
		assert.NoError(t, err)
		assert.Equal(t, "ORD-1", o.OrderCode)
	})

	t.Run("StrangerRejected", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockLedger))

		repo.On("GetByCode", mock.Anything, "ORD-1").Return(pendingOrder(), nil)

		_, err := svc.GetOrderDetail(userCtx(8), "ORD-1")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("AdminSeesAny", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockLedger))

		repo.On("GetByCode", mock.Anything, "ORD-1").Return(pendingOrder(), nil)

		_, err := svc.GetOrderDetail(adminCtx(), "ORD-1")
		assert.NoError(t, err)
	})
}

func TestService_Cancel(t *testing.T) {
	t.Run("PendingOrderCancelsAndReleasesStock", func(t *testing.T) {
		repo := new(MockRepository)
		ledger := new(MockLedger)
		svc := NewService(repo, ledger)

		repo.On("GetByCode", mock.Anything, "ORD-1").Return(pendingOrder(), nil)
		repo.On("Transition", mock.Anything, "ORD-1", StatusCancelled, cancellableFrom).
			Return(true, nil)
		ledger.On("ReleaseAll", mock.Anything, []stock.Line{
			{VariantID: "v1", Quantity: 2},
			{VariantID: "v2", Quantity: 1},
		}).Return(nil)

		o, err := svc.Cancel(userCtx(7), "ORD-1")
		assert.NoError(t, err)
		assert.Equal(t, StatusCancelled, o.Status)
		ledger.AssertExpectations(t)
	})

	t.Run("ShippedOrderRejected", func(t *testing.T) {
		repo := new(MockRepository)
		ledger := new(MockLedger)
		svc := NewService(repo, ledger)

		shipped := pendingOrder()
		shipped.Status = StatusShipped
		repo.On("GetByCode", mock.Anything, "ORD-1").Return(shipped, nil)

		_, err := svc.Cancel(userCtx(7), "ORD-1")
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		ledger.AssertNotCalled(t, "ReleaseAll", mock.Anything, mock.Anything)
	})

	t.Run("LostRaceNoDoubleRelease", func(t *testing.T) {
		repo := new(MockRepository)
		ledger := new(MockLedger)
		svc := NewService(repo, ledger)

		repo.On("GetByCode", mock.Anything, "ORD-1").Return(pendingOrder(), nil)
		repo.On("Transition", mock.Anything, "ORD-1", StatusCancelled, cancellableFrom).
			Return(false, nil)

		_, err := svc.Cancel(userCtx(7), "ORD-1")
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		ledger.AssertNotCalled(t, "ReleaseAll", mock.Anything, mock.Anything)
	})
}

func TestService_AdvanceStatus(t *testing.T) {
	t.Run("PendingToProcessing", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockLedger))

		repo.On("GetByCode", mock.Anything, "ORD-1").Return(pendingOrder(), nil)
		repo.On("Transition", mock.Anything, "ORD-1", StatusProcessing, mock.Anything).
			Return(true, nil)

		o, err := svc.AdvanceStatus(adminCtx(), "ORD-1", StatusProcessing)
		assert.NoError(t, err)
		assert.Equal(t, StatusProcessing, o.Status)
	})

	t.Run("ShippedToPendingRejected", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockLedger))

		shipped := pendingOrder()
		shipped.Status = StatusShipped
		repo.On("GetByCode", mock.Anything, "ORD-1").Return(shipped, nil)

		_, err := svc.AdvanceStatus(adminCtx(), "ORD-1", StatusPending)
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
	})

	t.Run("AdminForceCancelReleasesStock", func(t *testing.T) {
		repo := new(MockRepository)
		ledger := new(MockLedger)
		svc := NewService(repo, ledger)

		repo.On("GetByCode", mock.Anything, "ORD-1").Return(pendingOrder(), nil)
		repo.On("Transition", mock.Anything, "ORD-1", StatusCancelled, cancellableFrom).
			Return(true, nil)
		ledger.On("ReleaseAll", mock.Anything, mock.Anything).Return(nil)

		o, err := svc.AdvanceStatus(adminCtx(), "ORD-1", StatusCancelled)
		assert.NoError(t, err)
		assert.Equal(t, StatusCancelled, o.Status)
		ledger.AssertExpectations(t)
	})

	t.Run("UnknownStatusRejected", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockLedger))

		_, err := svc.AdvanceStatus(adminCtx(), "ORD-1", OrderStatus("REFUNDED"))
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
	})
}

func TestService_GetOrders_Pagination(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockLedger))

	limit := int32(500)
	page := int32(3)

	// limit is clamped to 100, offset derives from the clamped limit
	repo.On("FetchOrders", mock.Anything, (*OrderFilterInput)(nil), (*OrderSortInput)(nil), int32(100), int32(200)).
		Return([]*Order{}, nil)

	_, err := svc.GetOrders(userCtx(7), nil, nil, &limit, &page)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
