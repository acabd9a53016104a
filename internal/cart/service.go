package cart

import (
	"context"

	"shopora-be/internal/logger"
	"shopora-be/internal/stock"
	"shopora-be/internal/utils"

	"go.uber.org/zap"
)

// Service is the cart business logic for both identities: authenticated
// users (Postgres) and guests (Redis, keyed by the request's opaque token).
// The stock guard at add/update time is a courtesy check; the authoritative
// one runs at checkout.
type Service interface {
	AddItem(ctx context.Context, params AddItemParams) error
	UpdateItem(ctx context.Context, params UpdateItemParams) error
	RemoveItem(ctx context.Context, variantID string) error
	GetCart(ctx context.Context) ([]*CartItem, error)
	ClearCart(ctx context.Context) error
}

type service struct {
	repo   Repository
	guests *GuestStore
	stock  stock.Ledger
}

func NewService(repo Repository, guests *GuestStore, stockLedger stock.Ledger) Service {
	return &service{repo: repo, guests: guests, stock: stockLedger}
}

func (s *service) AddItem(ctx context.Context, params AddItemParams) error {
	if params.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	variant, err := s.stock.VariantForCheckout(ctx, params.VariantID)
	if err != nil {
		return err
	}

	if userID, ok := utils.GetUserIDFromContext(ctx); ok {
		return s.addForUser(ctx, userID, variant, params.Quantity)
	}
	if token, ok := utils.GetGuestTokenFromContext(ctx); ok {
		return s.guests.Add(ctx, token, params.VariantID, params.Quantity)
	}
	return ErrNoCartIdentity
}

func (s *service) addForUser(ctx context.Context, userID uint, variant *stock.Variant, quantity int) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddItem"),
		zap.Uint("user_id", userID),
		zap.String("variant_id", variant.ID),
	)

	existing, err := s.repo.GetItemByVariant(ctx, userID, variant.ID)
	if err != nil {
		return err
	}

	finalQty := quantity
	if existing != nil {
		finalQty += existing.Quantity
	}
	if finalQty > variant.Stock {
		return stock.ErrInsufficientStock
	}

	if existing == nil {
		_, err = s.repo.CreateItem(ctx, userID, variant.ID, quantity)
	} else {
		err = s.repo.UpdateQuantity(ctx, userID, variant.ID, finalQty)
	}
	if err != nil {
		log.Error("add cart item failed", zap.Error(err))
		return err
	}

	log.Info("cart item added", zap.Int("quantity", finalQty))
	return nil
}

func (s *service) UpdateItem(ctx context.Context, params UpdateItemParams) error {
	if params.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	variant, err := s.stock.VariantForCheckout(ctx, params.VariantID)
	if err != nil {
		return err
	}
	if params.Quantity > variant.Stock {
		return stock.ErrInsufficientStock
	}

	if userID, ok := utils.GetUserIDFromContext(ctx); ok {
		return s.repo.UpdateQuantity(ctx, userID, params.VariantID, params.Quantity)
	}
	if token, ok := utils.GetGuestTokenFromContext(ctx); ok {
		return s.guests.Update(ctx, token, params.VariantID, params.Quantity)
	}
	return ErrNoCartIdentity
}

func (s *service) RemoveItem(ctx context.Context, variantID string) error {
	if userID, ok := utils.GetUserIDFromContext(ctx); ok {
		return s.repo.RemoveItem(ctx, userID, variantID)
	}
	if token, ok := utils.GetGuestTokenFromContext(ctx); ok {
		return s.guests.Remove(ctx, token, variantID)
	}
	return ErrNoCartIdentity
}

func (s *service) GetCart(ctx context.Context) ([]*CartItem, error) {
	if userID, ok := utils.GetUserIDFromContext(ctx); ok {
		return s.repo.GetItems(ctx, userID)
	}
	token, ok := utils.GetGuestTokenFromContext(ctx)
	if !ok {
		return nil, ErrNoCartIdentity
	}

	lines, err := s.guests.Items(ctx, token)
	if err != nil {
		return nil, err
	}

	// Guest carts store only variant id and quantity; join the live variant
	// data the same way the user-cart query does.
	items := make([]*CartItem, 0, len(lines))
	for variantID, quantity := range lines {
		variant, err := s.stock.VariantForCheckout(ctx, variantID)
		if err != nil {
			// A variant deactivated since it was added is skipped, not an
			// error for the whole cart.
			continue
		}
		items = append(items, &CartItem{
			VariantID:   variant.ID,
			Quantity:    quantity,
			ProductName: variant.ProductName,
			VariantName: variant.Name,
			Color:       variant.Color,
			Size:        variant.Size,
			UnitPrice:   variant.Price,
			Stock:       variant.Stock,
			IsActive:    variant.IsActive,
		})
	}
	return items, nil
}

func (s *service) ClearCart(ctx context.Context) error {
	if userID, ok := utils.GetUserIDFromContext(ctx); ok {
		return s.repo.Clear(ctx, userID)
	}
	if token, ok := utils.GetGuestTokenFromContext(ctx); ok {
		return s.guests.Clear(ctx, token)
	}
	return ErrNoCartIdentity
}
