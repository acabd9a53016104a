package cart

import (
	"context"

	"shopora-be/internal/stock"
)

// Source is what checkout consumes: the lines to buy, and a way to empty the
// cart once the order is placed. Clear runs after the order commits, so a
// failed clear must not fail the checkout.
type Source interface {
	Items(ctx context.Context) ([]stock.Line, error)
	Clear(ctx context.Context) error
}

type userSource struct {
	repo   Repository
	userID uint
}

// ForUser binds a checkout cart source to an authenticated user's stored
// cart.
func ForUser(repo Repository, userID uint) Source {
	return &userSource{repo: repo, userID: userID}
}

func (s *userSource) Items(ctx context.Context) ([]stock.Line, error) {
	items, err := s.repo.GetItems(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}

	lines := make([]stock.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, stock.Line{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	return lines, nil
}

func (s *userSource) Clear(ctx context.Context) error {
	return s.repo.Clear(ctx, s.userID)
}

type guestSource struct {
	store *GuestStore
	token string
}

// ForGuest binds a checkout cart source to a guest's session cart. Checkout
// itself still requires an account (vouchers and addresses are per-user), but
// the adapter lets a future guest flow reuse the same pipeline.
func ForGuest(store *GuestStore, token string) Source {
	return &guestSource{store: store, token: token}
}

func (s *guestSource) Items(ctx context.Context) ([]stock.Line, error) {
	quantities, err := s.store.Items(ctx, s.token)
	if err != nil {
		return nil, err
	}
	if len(quantities) == 0 {
		return nil, ErrCartEmpty
	}

	lines := make([]stock.Line, 0, len(quantities))
	for variantID, qty := range quantities {
		lines = append(lines, stock.Line{VariantID: variantID, Quantity: qty})
	}
	return lines, nil
}

func (s *guestSource) Clear(ctx context.Context) error {
	return s.store.Clear(ctx, s.token)
}
