package cart

import (
	"context"
	"testing"

	"shopora-be/internal/stock"
	"shopora-be/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetItems(ctx context.Context, userID uint) ([]*CartItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*CartItem), args.Error(1)
}

func (m *MockRepository) GetItemByVariant(ctx context.Context, userID uint, variantID string) (*CartItem, error) {
	args := m.Called(ctx, userID, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CartItem), args.Error(1)
}

func (m *MockRepository) CreateItem(ctx context.Context, userID uint, variantID string, quantity int) (*CartItem, error) {
	args := m.Called(ctx, userID, variantID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CartItem), args.Error(1)
}

func (m *MockRepository) UpdateQuantity(ctx context.Context, userID uint, variantID string, quantity int) error {
	args := m.Called(ctx, userID, variantID, quantity)
	return args.Error(0)
}

func (m *MockRepository) RemoveItem(ctx context.Context, userID uint, variantID string) error {
	args := m.Called(ctx, userID, variantID)
	return args.Error(0)
}

func (m *MockRepository) Clear(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
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

// --- Tests ---

func userCtx(userID uint) context.Context {
	return utils.SetUserContext(context.Background(), userID, "user@example.com", utils.RoleUser)
}

func guestCtx(token string) context.Context {
	return utils.SetGuestToken(context.Background(), token)
}

func testVariant() *stock.Variant {
	return &stock.Variant{
		ID:          "v1",
		ProductID:   "p1",
		ProductName: "Linen Shirt",
		Name:        "Shirt M/White",
		Color:       "White",
		Size:        "M",
		Price:       100000,
		Stock:       5,
		IsActive:    true,
	}
}

func newServiceWithMiniredis(t *testing.T, repo Repository, ledger stock.Ledger) Service {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewService(repo, NewGuestStore(rdb), ledger)
}

func TestService_AddItem(t *testing.T) {
	t.Run("NewItemForUser", func(t *testing.T) {
		repo := new(MockRepository)
		ledger := new(MockLedger)
		svc := newServiceWithMiniredis(t, repo, ledger)

		ledger.On("VariantForCheckout", mock.Anything, "v1").Return(testVariant(), nil)
		repo.On("GetItemByVariant", mock.Anything, uint(7), "v1").Return(nil, nil)
		repo.On("CreateItem", mock.Anything, uint(7), "v1", 2).Return(&CartItem{ID: 1, VariantID: "v1", Quantity: 2}, nil)

		err := svc.AddItem(userCtx(7), AddItemParams{VariantID: "v1", Quantity: 2})
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("ExistingItemAccumulates", func(t *testing.T) {
		repo := new(MockRepository)
		ledger := new(MockLedger)
		svc := newServiceWithMiniredis(t, repo, ledger)

		ledger.On("VariantForCheckout", mock.Anything, "v1").Return(testVariant(), nil)
		repo.On("GetItemByVariant", mock.Anything, uint(7), "v1").
			Return(&CartItem{ID: 1, VariantID: "v1", Quantity: 2}, nil)
		repo.On("UpdateQuantity", mock.Anything, uint(7), "v1", 5).Return(nil)

		err := svc.AddItem(userCtx(7), AddItemParams{VariantID: "v1", Quantity: 3})
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("AccumulatedQuantityExceedsStock", func(t *testing.T) {
		repo := new(MockRepository)
		ledger := new(MockLedger)
		svc := newServiceWithMiniredis(t, repo, ledger)

		ledger.On("VariantForCheckout", mock.Anything, "v1").Return(testVariant(), nil)
		repo.On("GetItemByVariant", mock.Anything, uint(7), "v1").
			Return(&CartItem{ID: 1, VariantID: "v1", Quantity: 4}, nil)

		err := svc.AddItem(userCtx(7), AddItemParams{VariantID: "v1", Quantity: 2})
		assert.ErrorIs(t, err, stock.ErrInsufficientStock)
		repo.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnknownVariant", func(t *testing.T) {
		repo := new(MockRepository)
		ledger := new(MockLedger)
		svc := newServiceWithMiniredis(t, repo, ledger)

		ledger.On("VariantForCheckout", mock.Anything, "v9").Return(nil, stock.ErrVariantNotFound)

		err := svc.AddItem(userCtx(7), AddItemParams{VariantID: "v9", Quantity: 1})
		assert.ErrorIs(t, err, stock.ErrVariantNotFound)
	})

	t.Run("GuestGoesToRedis", func(t *testing.T) {
		repo := new(MockRepository)
		ledger := new(MockLedger)
		svc := newServiceWithMiniredis(t, repo, ledger)

		ledger.On("VariantForCheckout", mock.Anything, "v1").Return(testVariant(), nil)

		err := svc.AddItem(guestCtx("tok-1"), AddItemParams{VariantID: "v1", Quantity: 2})
		assert.NoError(t, err)
		repo.AssertNotCalled(t, "CreateItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NoIdentity", func(t *testing.T) {
		repo := new(MockRepository)
		ledger := new(MockLedger)
		svc := newServiceWithMiniredis(t, repo, ledger)

		ledger.On("VariantForCheckout", mock.Anything, "v1").Return(testVariant(), nil)

		err := svc.AddItem(context.Background(), AddItemParams{VariantID: "v1", Quantity: 1})
		assert.ErrorIs(t, err, ErrNoCartIdentity)
	})

	t.Run("ZeroQuantity", func(t *testing.T) {
		repo := new(MockRepository)
		ledger := new(MockLedger)
		svc := newServiceWithMiniredis(t, repo, ledger)

		err := svc.AddItem(userCtx(7), AddItemParams{VariantID: "v1", Quantity: 0})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		ledger.AssertNotCalled(t, "VariantForCheckout", mock.Anything, mock.Anything)
	})
}

func TestService_UpdateItem(t *testing.T) {
	t.Run("RejectsOverStock", func(t *testing.T) {
		repo := new(MockRepository)
		ledger := new(MockLedger)
		svc := newServiceWithMiniredis(t, repo, ledger)

		ledger.On("VariantForCheckout", mock.Anything, "v1").Return(testVariant(), nil)

		err := svc.UpdateItem(userCtx(7), UpdateItemParams{VariantID: "v1", Quantity: 6})
		assert.ErrorIs(t, err, stock.ErrInsufficientStock)
	})

	t.Run("UserPath", func(t *testing.T) {
		repo := new(MockRepository)
		ledger := new(MockLedger)
		svc := newServiceWithMiniredis(t, repo, ledger)

		ledger.On("VariantForCheckout", mock.Anything, "v1").Return(testVariant(), nil)
		repo.On("UpdateQuantity", mock.Anything, uint(7), "v1", 3).Return(nil)

		assert.NoError(t, svc.UpdateItem(userCtx(7), UpdateItemParams{VariantID: "v1", Quantity: 3}))
		repo.AssertExpectations(t)
	})
}

func TestService_GetCart_GuestJoinsVariantData(t *testing.T) {
	repo := new(MockRepository)
	ledger := new(MockLedger)
	svc := newServiceWithMiniredis(t, repo, ledger)

	ctx := guestCtx("tok-1")
	ledger.On("VariantForCheckout", mock.Anything, "v1").Return(testVariant(), nil)
	require.NoError(t, svc.AddItem(ctx, AddItemParams{VariantID: "v1", Quantity: 2}))

	items, err := svc.GetCart(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "v1", items[0].VariantID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "Linen Shirt", items[0].ProductName)
	assert.Equal(t, int64(100000), items[0].UnitPrice)
}

func TestService_GetCart_GuestSkipsVanishedVariant(t *testing.T) {
	repo := new(MockRepository)
	ledger := new(MockLedger)
	svc := newServiceWithMiniredis(t, repo, ledger)

	ctx := guestCtx("tok-1")
	ledger.On("VariantForCheckout", mock.Anything, "v1").Return(testVariant(), nil).Once()
	require.NoError(t, svc.AddItem(ctx, AddItemParams{VariantID: "v1", Quantity: 2}))

	ledger.On("VariantForCheckout", mock.Anything, "v1").Return(nil, stock.ErrVariantNotFound)

	items, err := svc.GetCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUserSource(t *testing.T) {
	t.Run("MapsItemsToLines", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetItems", mock.Anything, uint(7)).Return([]*CartItem{
			{VariantID: "v1", Quantity: 2},
			{VariantID: "v2", Quantity: 1},
		}, nil)

		src := ForUser(repo, 7)
		lines, err := src.Items(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []stock.Line{
			{VariantID: "v1", Quantity: 2},
			{VariantID: "v2", Quantity: 1},
		}, lines)
	})

	t.Run("EmptyCart", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetItems", mock.Anything, uint(7)).Return([]*CartItem{}, nil)

		src := ForUser(repo, 7)
		_, err := src.Items(context.Background())
		assert.ErrorIs(t, err, ErrCartEmpty)
	})
}
