package payment

import (
	"context"
	"fmt"
	"time"

	"shopora-be/internal/logger"
	"shopora-be/internal/metrics"
	"shopora-be/internal/order"
	"shopora-be/internal/stock"

	"go.uber.org/zap"
)

// Reconciliation channels, used as a metric label and in logs.
const (
	ChannelCallback = "callback"
	ChannelIPN      = "ipn"
	ChannelSweeper  = "sweeper"
)

// Reconciler settles a payment session against its order. Reconcile is
// idempotent per order code: the browser callback, the IPN and the expiry
// sweeper may all race, and exactly one of them moves the order.
type Reconciler interface {
	Reconcile(ctx context.Context, result *CallbackResult, channel string) (ReconcileOutcome, error)

	// Expire cancels the order behind a session that passed its deadline
	// without a settlement. Same idempotence rules as Reconcile.
	Expire(ctx context.Context, orderCode, channel string) (ReconcileOutcome, error)
}

type reconciler struct {
	sessions Repository
	orders   order.Repository
	stock    stock.Ledger
	metrics  *metrics.ServerMetrics

	now func() time.Time
}

func NewReconciler(sessions Repository, orders order.Repository, stockLedger stock.Ledger, m *metrics.ServerMetrics) Reconciler {
	return &reconciler{
		sessions: sessions,
		orders:   orders,
		stock:    stockLedger,
		metrics:  m,
		now:      time.Now,
	}
}

func (r *reconciler) Reconcile(ctx context.Context, result *CallbackResult, channel string) (ReconcileOutcome, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Reconcile"),
		zap.String("orderCode", result.OrderCode),
		zap.String("channel", channel),
	)

	session, err := r.sessions.GetSession(ctx, result.OrderCode)
	if err != nil {
		return OutcomeNoOp, err
	}

	if !result.Success {
		return r.settleFailure(ctx, log, session, channel)
	}

	if result.Amount != session.Amount {
		log.Warn("callback amount mismatch",
			zap.Int64("expected", session.Amount),
			zap.Int64("got", result.Amount))
		r.count(channel, "amount_mismatch")
		return OutcomeNoOp, ErrAmountMismatch
	}

	if r.now().After(session.ExpiresAt) {
		// A success that arrives after the deadline does not settle; the
		// order goes down the failure path.
		outcome, ferr := r.settleFailure(ctx, log, session, channel)
		if ferr != nil {
			return outcome, ferr
		}
		return outcome, ErrSessionExpired
	}

	moved, err := r.orders.MarkPaid(ctx, result.OrderCode, result.GatewayTxnID)
	if err != nil {
		return OutcomeNoOp, fmt.Errorf("mark order paid: %w", err)
	}
	if _, err := r.sessions.ConsumeSession(ctx, result.OrderCode); err != nil {
		log.Error("consume session after payment", zap.Error(err))
	}

	if !moved {
		log.Info("payment already reconciled")
		r.count(channel, string(OutcomeNoOp))
		return OutcomeNoOp, nil
	}

	log.Info("order paid", zap.String("gatewayTxnId", result.GatewayTxnID))
	r.count(channel, string(OutcomePaid))
	return OutcomePaid, nil
}

func (r *reconciler) Expire(ctx context.Context, orderCode, channel string) (ReconcileOutcome, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Expire"),
		zap.String("orderCode", orderCode),
		zap.String("channel", channel),
	)

	session, err := r.sessions.GetSession(ctx, orderCode)
	if err != nil {
		return OutcomeNoOp, err
	}
	return r.settleFailure(ctx, log, session, channel)
}

// settleFailure cancels the pending order and releases its reserved stock.
// Only the invocation whose conditional transition reports a move does the
// release; the redeemed voucher, if any, stays consumed.
func (r *reconciler) settleFailure(ctx context.Context, log *zap.Logger, session *PaymentSession, channel string) (ReconcileOutcome, error) {
	moved, err := r.orders.Transition(ctx, session.OrderCode, order.StatusCancelled, []order.OrderStatus{order.StatusPending})
	if err != nil {
		return OutcomeNoOp, fmt.Errorf("cancel unpaid order: %w", err)
	}
	if _, cerr := r.sessions.ConsumeSession(ctx, session.OrderCode); cerr != nil {
		log.Error("consume session after cancellation", zap.Error(cerr))
	}

	if !moved {
		log.Info("payment failure already reconciled")
		r.count(channel, string(OutcomeNoOp))
		return OutcomeNoOp, nil
	}

	o, err := r.orders.GetByCode(ctx, session.OrderCode)
	if err != nil {
		return OutcomeCancelled, fmt.Errorf("load order for stock release: %w", err)
	}
	lines := make([]stock.Line, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, stock.Line{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	if err := r.stock.ReleaseAll(ctx, lines); err != nil {
		// The order is already cancelled; a failed release needs manual
		// correction, not a retry of the cancellation.
		log.Error("release stock after cancellation", zap.Error(err))
	}

	log.Info("order cancelled by payment reconciliation")
	r.count(channel, string(OutcomeCancelled))
	return OutcomeCancelled, nil
}

func (r *reconciler) count(channel, outcome string) {
	if r.metrics == nil {
		return
	}
	r.metrics.ReconcileTotal.WithLabelValues(channel, outcome).Inc()
}
