package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"shopora-be/internal/logger"

	"go.uber.org/zap"
)

// Gateway parameter names. The secure hash is computed over every other
// parameter, sorted lexicographically by key and URL-encoded.
const (
	paramVersion    = "sp_version"
	paramMerchant   = "sp_merchant"
	paramTxnRef     = "sp_txn_ref"
	paramAmount     = "sp_amount"
	paramOrderInfo  = "sp_order_info"
	paramReturnURL  = "sp_return_url"
	paramClientIP   = "sp_ip_addr"
	paramCreateDate = "sp_create_date"
	paramExpireDate = "sp_expire_date"

	paramResponseCode = "sp_response_code"
	paramGatewayTxnID = "sp_txn_id"
	paramSecureHash   = "sp_secure_hash"
)

const (
	protocolVersion = "2.1.0"
	timeLayout      = "20060102150405"

	// Gateway response code for a settled payment.
	responseCodeSuccess = "00"

	// SessionTTL bounds how long a reserved order waits for settlement.
	SessionTTL = 15 * time.Minute
)

// Gateway is the bridge to the bank-style redirect gateway.
type Gateway interface {
	// BuildRedirect constructs the signed payment URL plus the values we
	// signed, so the caller can persist the session alongside.
	BuildRedirect(ctx context.Context, req SessionRequest) (redirectURL string, amountMinor int64, expiresAt time.Time, err error)

	// VerifyCallback checks the signature over the received parameters. No
	// field may be trusted when it returns an error.
	VerifyCallback(values url.Values) error

	// DecodeCallback extracts the outcome from an already-verified parameter
	// set.
	DecodeCallback(values url.Values) *CallbackResult
}

type GatewayConfig struct {
	BaseURL      string
	MerchantCode string
	HashSecret   string
	ReturnURL    string
}

type bankGateway struct {
	cfg GatewayConfig
	now func() time.Time
}

func NewBankGateway(cfg GatewayConfig) Gateway {
	if cfg.HashSecret == "" {
		logger.L().Warn("gateway hash secret is empty")
	}
	return &bankGateway{cfg: cfg, now: time.Now}
}

func (g *bankGateway) BuildRedirect(
	ctx context.Context,
	req SessionRequest,
) (string, int64, time.Time, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "gateway"),
		zap.String("method", "BuildRedirect"),
		zap.String("order_code", req.OrderCode),
		zap.Int64("total", req.Total),
	)

	if req.Total <= 0 {
		return "", 0, time.Time{}, fmt.Errorf("invalid payment amount: %d", req.Total)
	}

	now := g.now()
	expiresAt := now.Add(SessionTTL)

	// The gateway wants the amount in minor units.
	amountMinor := req.Total * 100

	params := url.Values{}
	params.Set(paramVersion, protocolVersion)
	params.Set(paramMerchant, g.cfg.MerchantCode)
	params.Set(paramTxnRef, req.OrderCode)
	params.Set(paramAmount, strconv.FormatInt(amountMinor, 10))
	params.Set(paramOrderInfo, req.OrderInfo)
	params.Set(paramReturnURL, g.cfg.ReturnURL)
	params.Set(paramClientIP, req.ClientIP)
	params.Set(paramCreateDate, now.Format(timeLayout))
	params.Set(paramExpireDate, expiresAt.Format(timeLayout))

	signed := signParams(params, g.cfg.HashSecret)
	params.Set(paramSecureHash, signed)

	redirect := g.cfg.BaseURL + "?" + params.Encode()

	log.Info("payment redirect built",
		zap.Int64("amount_minor", amountMinor),
		zap.Time("expires_at", expiresAt),
	)

	return redirect, amountMinor, expiresAt, nil
}

func (g *bankGateway) VerifyCallback(values url.Values) error {
	received := values.Get(paramSecureHash)
	if received == "" {
		return ErrInvalidSignature
	}

	rest := url.Values{}
	for key, vals := range values {
		if key == paramSecureHash {
			continue
		}
		for _, v := range vals {
			rest.Add(key, v)
		}
	}

	expected := signParams(rest, g.cfg.HashSecret)
	if !hmac.Equal([]byte(expected), []byte(received)) {
		return ErrInvalidSignature
	}
	return nil
}

func (g *bankGateway) DecodeCallback(values url.Values) *CallbackResult {
	amount, _ := strconv.ParseInt(values.Get(paramAmount), 10, 64)
	code := values.Get(paramResponseCode)

	return &CallbackResult{
		OrderCode:    values.Get(paramTxnRef),
		Amount:       amount,
		ResponseCode: code,
		GatewayTxnID: values.Get(paramGatewayTxnID),
		Success:      code == responseCodeSuccess,
	}
}

// signParams computes the HMAC-SHA512 over the canonical query string.
// url.Values.Encode already sorts keys lexicographically and URL-encodes,
// which is exactly the canonical form the gateway specifies.
func signParams(params url.Values, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(params.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}
