package webhook

import (
	"errors"
	"net/http"

	"shopora-be/internal/logger"
	"shopora-be/internal/payment"
	"shopora-be/internal/utils"

	"go.uber.org/zap"
)

// IPN acknowledgement codes. The gateway retries until it receives "00", so
// a no-op reconciliation still acknowledges with "00".
const (
	ipnCodeOK               = "00"
	ipnCodeOrderNotFound    = "01"
	ipnCodeInvalidAmount    = "04"
	ipnCodeInvalidSignature = "97"
	ipnCodeInternalError    = "99"
)

type ipnAck struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler serves the two inbound legs of the payment gateway: the browser
// return (redirect) and the server-to-server IPN.
type Handler struct {
	gateway    payment.Gateway
	reconciler payment.Reconciler

	successURL string
	failureURL string
}

func NewHandler(gateway payment.Gateway, reconciler payment.Reconciler, successURL, failureURL string) *Handler {
	return &Handler{
		gateway:    gateway,
		reconciler: reconciler,
		successURL: successURL,
		failureURL: failureURL,
	}
}

// CallbackHandler handles the browser redirect back from the gateway. The
// outcome only steers which page the shopper lands on; the order state is
// settled by the shared reconciler. Gateway internals never leak into the
// redirect target.
func (h *Handler) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context()).With(
		zap.String("layer", "handler"),
		zap.String("method", "CallbackHandler"),
	)

	values := r.URL.Query()
	if err := h.gateway.VerifyCallback(values); err != nil {
		log.Warn("callback signature rejected", zap.Error(err))
		http.Redirect(w, r, h.failureURL, http.StatusFound)
		return
	}

	result := h.gateway.DecodeCallback(values)
	outcome, err := h.reconciler.Reconcile(r.Context(), result, payment.ChannelCallback)
	if err != nil {
		log.Warn("callback reconciliation failed",
			zap.String("orderCode", result.OrderCode), zap.Error(err))
		http.Redirect(w, r, h.failureURL, http.StatusFound)
		return
	}

	// A no-op still reflects the gateway's verdict: the IPN may simply have
	// settled first.
	if result.Success && outcome != payment.OutcomeCancelled {
		http.Redirect(w, r, h.successURL, http.StatusFound)
		return
	}
	http.Redirect(w, r, h.failureURL, http.StatusFound)
}

// IPNHandler handles the gateway's server-to-server notification. The body
// is a fixed acknowledgement the gateway matches on.
func (h *Handler) IPNHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context()).With(
		zap.String("layer", "handler"),
		zap.String("method", "IPNHandler"),
	)

	if err := r.ParseForm(); err != nil {
		utils.WriteJSON(w, http.StatusOK, ipnAck{Code: ipnCodeInternalError, Message: "Unknown error"})
		return
	}
	values := r.Form

	if err := h.gateway.VerifyCallback(values); err != nil {
		log.Warn("ipn signature rejected", zap.Error(err))
		utils.WriteJSON(w, http.StatusOK, ipnAck{Code: ipnCodeInvalidSignature, Message: "Invalid signature"})
		return
	}

	result := h.gateway.DecodeCallback(values)
	_, err := h.reconciler.Reconcile(r.Context(), result, payment.ChannelIPN)
	switch {
	case err == nil:
		utils.WriteJSON(w, http.StatusOK, ipnAck{Code: ipnCodeOK, Message: "Confirm success"})
	case errors.Is(err, payment.ErrSessionNotFound):
		utils.WriteJSON(w, http.StatusOK, ipnAck{Code: ipnCodeOrderNotFound, Message: "Order not found"})
	case errors.Is(err, payment.ErrAmountMismatch):
		// Deterministic rejection; a terminal code keeps the gateway from
		// retrying a notification that can never reconcile.
		log.Error("ipn amount mismatch",
			zap.String("orderCode", result.OrderCode), zap.Error(err))
		utils.WriteJSON(w, http.StatusOK, ipnAck{Code: ipnCodeInvalidAmount, Message: "Invalid amount"})
	case errors.Is(err, payment.ErrSessionExpired):
		// The failure path already ran; acknowledge so the gateway stops
		// retrying.
		utils.WriteJSON(w, http.StatusOK, ipnAck{Code: ipnCodeOK, Message: "Confirm success"})
	default:
		log.Error("ipn reconciliation failed",
			zap.String("orderCode", result.OrderCode), zap.Error(err))
		utils.WriteJSON(w, http.StatusOK, ipnAck{Code: ipnCodeInternalError, Message: "Unknown error"})
	}
}
