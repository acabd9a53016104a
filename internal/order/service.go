package order

import (
	"context"
	"fmt"

	"shopora-be/internal/logger"
	"shopora-be/internal/stock"
	"shopora-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	GetOrders(ctx context.Context, filter *OrderFilterInput, sort *OrderSortInput, limit, page *int32) ([]*Order, error)
	GetOrderDetail(ctx context.Context, orderCode string) (*Order, error)

	// Cancel moves a PENDING or PROCESSING order to CANCELLED and releases
	// the reserved stock exactly once. A redeemed voucher is NOT returned:
	// redemption is a one-time consumption independent of order outcome.
	Cancel(ctx context.Context, orderCode string) (*Order, error)

	// AdvanceStatus is the admin path: forward moves along the lifecycle, or
	// a forced cancellation (which goes through the same release logic).
	AdvanceStatus(ctx context.Context, orderCode string, to OrderStatus) (*Order, error)
}

type service struct {
	repo  Repository
	stock stock.Ledger
}

func NewService(repo Repository, stockLedger stock.Ledger) Service {
	return &service{repo: repo, stock: stockLedger}
}

func (s *service) GetOrders(
	ctx context.Context,
	filter *OrderFilterInput,
	sort *OrderSortInput,
	limit, page *int32,
) ([]*Order, error) {

	finalLimit := int32(20)
	finalPage := int32(1)

	if limit != nil && *limit > 0 {
		finalLimit = *limit
	}
	if page != nil && *page > 0 {
		finalPage = *page
	}
	if finalLimit > 100 {
		finalLimit = 100
	}

	offset := (finalPage - 1) * finalLimit
	return s.repo.FetchOrders(ctx, filter, sort, finalLimit, offset)
}

func (s *service) GetOrderDetail(ctx context.Context, orderCode string) (*Order, error) {
	o, err := s.repo.GetByCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}

	userID, _ := utils.GetUserIDFromContext(ctx)
	if !utils.IsAdmin(ctx) && o.UserID != userID {
		return nil, ErrUnauthorized
	}

	return o, nil
}

func (s *service) Cancel(ctx context.Context, orderCode string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CancelOrder"),
		zap.String("order_code", orderCode),
	)

	o, err := s.GetOrderDetail(ctx, orderCode)
	if err != nil {
		return nil, err
	}

	return s.cancel(ctx, log, o)
}

func (s *service) cancel(ctx context.Context, log *zap.Logger, o *Order) (*Order, error) {
	if !CanTransition(o.Status, StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, o.Status, StatusCancelled)
	}

	moved, err := s.repo.Transition(ctx, o.OrderCode, StatusCancelled, cancellableFrom)
	if err != nil {
		return nil, err
	}
	if !moved {
		// Someone else transitioned the order between our read and the
		// conditional update; the stock release belongs to whoever won.
		return nil, fmt.Errorf("%w: order %s no longer cancellable", ErrInvalidStateTransition, o.OrderCode)
	}

	lines := make([]stock.Line, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, stock.Line{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	if err := s.stock.ReleaseAll(ctx, lines); err != nil {
		// The cancellation stands; the release failure is operational.
		log.Error("stock release after cancel failed", zap.Error(err))
	}

	log.Info("order cancelled", zap.Int("released_lines", len(lines)))
	o.Status = StatusCancelled
	return o, nil
}

func (s *service) AdvanceStatus(ctx context.Context, orderCode string, to OrderStatus) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AdvanceStatus"),
		zap.String("order_code", orderCode),
		zap.String("to", string(to)),
	)

	if !IsValidStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %s", ErrInvalidStateTransition, to)
	}

	o, err := s.repo.GetByCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}

	if to == StatusCancelled {
		return s.cancel(ctx, log, o)
	}

	if !CanTransition(o.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, o.Status, to)
	}

	moved, err := s.repo.Transition(ctx, orderCode, to, SourcesFor(to))
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, o.Status, to)
	}

	log.Info("order status advanced")
	o.Status = to
	return o, nil
}
