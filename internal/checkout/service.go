package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shopora-be/internal/address"
	"shopora-be/internal/cart"
	"shopora-be/internal/logger"
	"shopora-be/internal/metrics"
	"shopora-be/internal/order"
	"shopora-be/internal/payment"
	"shopora-be/internal/pricing"
	"shopora-be/internal/stock"
	"shopora-be/internal/utils"
	"shopora-be/internal/voucher"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUnauthenticated = errors.New("checkout requires an authenticated user")

type Request struct {
	AddressID     string
	PaymentMethod order.PaymentMethod
	VoucherCode   *string
	ClientIP      string
}

type Result struct {
	OrderCode  string
	FinalTotal int64
	Status     order.OrderStatus

	// Set only for online payment: where to send the shopper.
	PaymentURL *string
}

// Service runs the checkout pipeline: live price re-read, voucher
// validation, quote, all-or-nothing stock reservation, order creation with
// in-transaction voucher redemption, then the payment branch. Any failure
// after reservation and before the order commits releases the reservations
// before surfacing the error.
type Service interface {
	Checkout(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	addresses address.Repository
	vouchers  voucher.Service
	redeemer  voucher.Repository
	pricing   *pricing.Calculator
	stock     stock.Ledger
	orders    order.Repository
	gateway   payment.Gateway
	sessions  payment.Repository
	metrics   *metrics.ServerMetrics

	// sourceFor binds the cart abstraction to the caller's identity.
	sourceFor func(userID uint) cart.Source
}

func NewService(
	carts cart.Repository,
	addresses address.Repository,
	vouchers voucher.Service,
	redeemer voucher.Repository,
	calc *pricing.Calculator,
	stockLedger stock.Ledger,
	orders order.Repository,
	gateway payment.Gateway,
	sessions payment.Repository,
	m *metrics.ServerMetrics,
) Service {
	return &service{
		addresses: addresses,
		vouchers:  vouchers,
		redeemer:  redeemer,
		pricing:   calc,
		stock:     stockLedger,
		orders:    orders,
		gateway:   gateway,
		sessions:  sessions,
		metrics:   m,
		sourceFor: func(userID uint) cart.Source { return cart.ForUser(carts, userID) },
	}
}

func (s *service) Checkout(ctx context.Context, req Request) (*Result, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Checkout"),
		zap.Uint("user_id", userID),
		zap.String("payment_method", string(req.PaymentMethod)),
	)

	if req.PaymentMethod != order.MethodCOD && req.PaymentMethod != order.MethodGateway {
		return nil, fmt.Errorf("unsupported payment method %q", req.PaymentMethod)
	}

	addr, err := s.addresses.GetUserAddress(ctx, req.AddressID, userID)
	if err != nil {
		return nil, err
	}

	source := s.sourceFor(userID)
	lines, err := source.Items(ctx)
	if err != nil {
		return nil, err
	}

	// Live catalog read for every line; client-held prices are never used.
	priced := make([]pricing.LineItem, 0, len(lines))
	items := make([]order.OrderItem, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, stock.ErrInvalidQuantity
		}
		variant, err := s.stock.VariantForCheckout(ctx, line.VariantID)
		if err != nil {
			return nil, err
		}
		priced = append(priced, pricing.LineItem{
			VariantID: variant.ID,
			Quantity:  line.Quantity,
			UnitPrice: variant.Price,
		})
		items = append(items, order.OrderItem{
			VariantID:   variant.ID,
			VariantName: variant.Name,
			ProductName: variant.ProductName,
			Color:       variant.Color,
			Size:        variant.Size,
			Quantity:    line.Quantity,
			UnitPrice:   variant.Price,
			Subtotal:    variant.Price * int64(line.Quantity),
		})
	}

	var subtotal int64
	for _, p := range priced {
		subtotal += p.UnitPrice * int64(p.Quantity)
	}

	var voucherApplied *voucher.Voucher
	if req.VoucherCode != nil && *req.VoucherCode != "" {
		voucherApplied, err = s.vouchers.Validate(ctx, *req.VoucherCode, userID, subtotal)
		if err != nil {
			return nil, err
		}
	}

	breakdown := s.pricing.Quote(priced, addr, voucherApplied)

	if err := s.stock.ReserveAll(ctx, lines); err != nil {
		s.countCheckout("insufficient_stock")
		s.countReservation("rejected")
		return nil, err
	}
	s.countReservation("reserved")

	o := s.buildOrder(userID, req, addr, items, breakdown, voucherApplied)

	var redeem func(context.Context, *sql.Tx) error
	if voucherApplied != nil {
		voucherID := voucherApplied.ID
		redeem = func(ctx context.Context, tx *sql.Tx) error {
			return s.redeemer.Redeem(ctx, tx, voucherID, userID)
		}
	}

	if err := s.orders.CreateOrderTx(ctx, o, redeem); err != nil {
		// The reservation is the only side effect so far; give it back.
		if rerr := s.stock.ReleaseAll(ctx, lines); rerr != nil {
			log.Error("release after failed order creation", zap.Error(rerr))
		}
		s.countCheckout("order_failed")
		return nil, err
	}

	log = log.With(zap.String("order_code", o.OrderCode))

	result := &Result{
		OrderCode:  o.OrderCode,
		FinalTotal: o.FinalTotal,
		Status:     o.Status,
	}

	if req.PaymentMethod == order.MethodGateway {
		paymentURL, err := s.openPaymentSession(ctx, o, req.ClientIP)
		if err != nil {
			s.abandonOrder(ctx, log, o.OrderCode, lines)
			s.countCheckout("session_failed")
			return nil, err
		}
		result.PaymentURL = &paymentURL
	}

	if err := source.Clear(ctx); err != nil {
		log.Warn("clear cart after checkout", zap.Error(err))
	}

	log.Info("checkout complete", zap.Int64("final_total", o.FinalTotal))
	s.countCheckout("success")
	return result, nil
}

func (s *service) buildOrder(
	userID uint,
	req Request,
	addr *address.Address,
	items []order.OrderItem,
	breakdown pricing.Breakdown,
	v *voucher.Voucher,
) *order.Order {

	var voucherID *uuid.UUID
	if v != nil {
		id := v.ID
		voucherID = &id
	}

	return &order.Order{
		OrderCode:     utils.GenerateOrderCode(),
		UserID:        userID,
		Status:        order.StatusPending,
		PaymentStatus: order.PaymentUnpaid,
		PaymentMethod: req.PaymentMethod,
		VoucherID:     voucherID,
		Subtotal:      breakdown.Subtotal,
		Discount:      breakdown.Discount,
		ShippingFee:   breakdown.ShippingFee,
		FinalTotal:    breakdown.FinalTotal,
		Shipping: order.AddressSnapshot{
			Name:     addr.Name,
			Phone:    addr.Phone,
			Address1: addr.Address1,
			Address2: addr.Address2,
			City:     addr.City,
			Province: addr.Province,
			Postal:   addr.Postal,
			Country:  addr.Country,
		},
		Items: items,
	}
}

func (s *service) openPaymentSession(ctx context.Context, o *order.Order, clientIP string) (string, error) {
	redirect, amountMinor, expiresAt, err := s.gateway.BuildRedirect(ctx, payment.SessionRequest{
		OrderCode: o.OrderCode,
		Total:     o.FinalTotal,
		OrderInfo: "Order " + o.OrderCode,
		ClientIP:  clientIP,
	})
	if err != nil {
		return "", fmt.Errorf("build payment redirect: %w", err)
	}

	err = s.sessions.SaveSession(ctx, &payment.PaymentSession{
		ID:          uuid.New(),
		OrderCode:   o.OrderCode,
		Amount:      amountMinor,
		Currency:    "VND",
		RedirectURL: redirect,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return "", err
	}
	return redirect, nil
}

// abandonOrder rolls back an order whose payment session could not be
// opened. The voucher redemption committed with the order stays consumed.
func (s *service) abandonOrder(ctx context.Context, log *zap.Logger, orderCode string, lines []stock.Line) {
	moved, err := s.orders.Transition(ctx, orderCode, order.StatusCancelled, []order.OrderStatus{order.StatusPending})
	if err != nil {
		log.Error("cancel order after session failure", zap.Error(err))
		return
	}
	if !moved {
		return
	}
	if err := s.stock.ReleaseAll(ctx, lines); err != nil {
		log.Error("release stock after session failure", zap.Error(err))
	}
}

func (s *service) countCheckout(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.CheckoutTotal.WithLabelValues(outcome).Inc()
}

func (s *service) countReservation(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.StockReservation.WithLabelValues(outcome).Inc()
}
