package payment

import (
	"time"

	"github.com/google/uuid"
)

// PaymentSession ties a pending online-payment order to one settlement
// attempt at the gateway. Consumed exactly once; unconsumed sessions past
// their expiry are swept and the order cancelled.
type PaymentSession struct {
	ID         uuid.UUID
	OrderCode  string
	Amount     int64 // minor units, as signed into the redirect URL
	Currency   string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	ConsumedAt *time.Time

	RedirectURL string
}

// SessionRequest is what the orchestrator hands the gateway when an online
// payment order enters PENDING.
type SessionRequest struct {
	OrderCode string
	Total     int64 // major units (final order total)
	OrderInfo string
	ClientIP  string
}

// CallbackResult is the verified, decoded outcome carried by both the browser
// redirect and the IPN.
type CallbackResult struct {
	OrderCode    string
	Amount       int64 // minor units
	ResponseCode string
	GatewayTxnID string
	Success      bool
}

// ReconcileOutcome reports what a reconcile call actually did; the second of
// two racing invocations sees OutcomeNoOp.
type ReconcileOutcome string

const (
	OutcomePaid      ReconcileOutcome = "paid"
	OutcomeCancelled ReconcileOutcome = "cancelled"
	OutcomeNoOp      ReconcileOutcome = "noop"
)
