package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"shopora-be/internal/address"
	"shopora-be/internal/cart"
	"shopora-be/internal/checkout"
	"shopora-be/internal/logger"
	"shopora-be/internal/order"
	"shopora-be/internal/stock"
	"shopora-be/internal/utils"
	"shopora-be/internal/voucher"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type API struct {
	checkout checkout.Service
	carts    cart.Service
	orders   order.Service
}

func NewAPI(checkoutSvc checkout.Service, cartSvc cart.Service, orderSvc order.Service) *API {
	return &API{checkout: checkoutSvc, carts: cartSvc, orders: orderSvc}
}

// --- Checkout ---

type checkoutRequest struct {
	AddressID     string  `json:"addressId"`
	PaymentMethod string  `json:"paymentMethodId"`
	VoucherCode   *string `json:"voucherCode,omitempty"`
}

type checkoutResponse struct {
	OrderCode  string  `json:"orderCode"`
	FinalTotal int64   `json:"finalTotal"`
	Status     string  `json:"status"`
	PaymentURL *string `json:"paymentUrl,omitempty"`
}

func (a *API) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AddressID == "" {
		utils.WriteJSONError(w, "addressId is required", http.StatusBadRequest)
		return
	}

	result, err := a.checkout.Checkout(r.Context(), checkout.Request{
		AddressID:     req.AddressID,
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
		VoucherCode:   req.VoucherCode,
		ClientIP:      utils.ClientIP(r),
	})
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, checkoutResponse{
		OrderCode:  result.OrderCode,
		FinalTotal: result.FinalTotal,
		Status:     string(result.Status),
		PaymentURL: result.PaymentURL,
	})
}

// --- Cart ---

type cartItemRequest struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type cartItemResponse struct {
	VariantID   string `json:"variantId"`
	Quantity    int    `json:"quantity"`
	ProductName string `json:"productName"`
	VariantName string `json:"variantName"`
	Color       string `json:"color,omitempty"`
	Size        string `json:"size,omitempty"`
	UnitPrice   int64  `json:"unitPrice"`
	Stock       int    `json:"stock"`
}

func (a *API) GetCart(w http.ResponseWriter, r *http.Request) {
	items, err := a.carts.GetCart(r.Context())
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	resp := make([]cartItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, cartItemResponse{
			VariantID:   item.VariantID,
			Quantity:    item.Quantity,
			ProductName: item.ProductName,
			VariantName: item.VariantName,
			Color:       item.Color,
			Size:        item.Size,
			UnitPrice:   item.UnitPrice,
			Stock:       item.Stock,
		})
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (a *API) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := a.carts.AddItem(r.Context(), cart.AddItemParams{
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]string{"message": "item added"})
}

func (a *API) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := a.carts.UpdateItem(r.Context(), cart.UpdateItemParams{
		VariantID: chi.URLParam(r, "variantID"),
		Quantity:  req.Quantity,
	})
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "item updated"})
}

func (a *API) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	if err := a.carts.RemoveItem(r.Context(), chi.URLParam(r, "variantID")); err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "item removed"})
}

func (a *API) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := a.carts.ClearCart(r.Context()); err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}

// --- Orders ---

type orderItemResponse struct {
	VariantID   string `json:"variantId"`
	ProductName string `json:"productName"`
	VariantName string `json:"variantName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	Subtotal    int64  `json:"subtotal"`
}

type orderResponse struct {
	OrderCode     string              `json:"orderCode"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"paymentStatus"`
	PaymentMethod string              `json:"paymentMethod"`
	Subtotal      int64               `json:"subtotal"`
	Discount      int64               `json:"discountAmount"`
	ShippingFee   int64               `json:"shippingFee"`
	FinalTotal    int64               `json:"finalTotal"`
	CreatedAt     string              `json:"createdAt"`
	Items         []orderItemResponse `json:"items,omitempty"`
}

func toOrderResponse(o *order.Order, withItems bool) orderResponse {
	resp := orderResponse{
		OrderCode:     o.OrderCode,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		PaymentMethod: string(o.PaymentMethod),
		Subtotal:      o.Subtotal,
		Discount:      o.Discount,
		ShippingFee:   o.ShippingFee,
		FinalTotal:    o.FinalTotal,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
	if withItems {
		for _, item := range o.Items {
			resp.Items = append(resp.Items, orderItemResponse{
				VariantID:   item.VariantID,
				ProductName: item.ProductName,
				VariantName: item.VariantName,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				Subtotal:    item.Subtotal,
			})
		}
	}
	return resp
}

func (a *API) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter, sort, limit, page := parseOrderQuery(r)

	orders, err := a.orders.GetOrders(r.Context(), filter, sort, limit, page)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o, false))
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (a *API) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := a.orders.GetOrderDetail(r.Context(), chi.URLParam(r, "orderCode"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, toOrderResponse(o, true))
}

func (a *API) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := a.orders.Cancel(r.Context(), chi.URLParam(r, "orderCode"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, toOrderResponse(o, false))
}

type advanceStatusRequest struct {
	Status string `json:"status"`
}

func (a *API) AdvanceOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req advanceStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	to := order.OrderStatus(req.Status)
	if !order.IsValidStatus(to) {
		utils.WriteJSONError(w, "unknown order status", http.StatusBadRequest)
		return
	}

	o, err := a.orders.AdvanceStatus(r.Context(), chi.URLParam(r, "orderCode"), to)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, toOrderResponse(o, false))
}

func parseOrderQuery(r *http.Request) (*order.OrderFilterInput, *order.OrderSortInput, *int32, *int32) {
	q := r.URL.Query()

	var filter order.OrderFilterInput
	hasFilter := false
	if s := q.Get("search"); s != "" {
		filter.Search = &s
		hasFilter = true
	}
	if s := q.Get("status"); s != "" {
		status := order.OrderStatus(s)
		filter.Status = &status
		hasFilter = true
	}
	if s := q.Get("from"); s != "" {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			filter.DateFrom = &ts
			hasFilter = true
		}
	}
	if s := q.Get("to"); s != "" {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			filter.DateTo = &ts
			hasFilter = true
		}
	}

	var sort *order.OrderSortInput
	if field := q.Get("sort"); field != "" {
		s := order.OrderSortInput{Field: order.OrderSortFieldCreatedAt, Direction: order.SortDirectionDesc}
		if field == "total" {
			s.Field = order.OrderSortFieldTotal
		}
		if q.Get("dir") == "asc" {
			s.Direction = order.SortDirectionAsc
		}
		sort = &s
	}

	var limit, page *int32
	if n := parseInt32(q.Get("limit")); n > 0 {
		limit = &n
	}
	if n := parseInt32(q.Get("page")); n > 0 {
		page = &n
	}

	if !hasFilter {
		return nil, sort, limit, page
	}
	return &filter, sort, limit, page
}

func parseInt32(s string) int32 {
	var n int32
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int32(c-'0')
	}
	return n
}

// writeDomainError maps domain sentinels onto HTTP statuses. Anything
// unmapped is logged and returned as a plain 500.
func (a *API) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, stock.ErrInsufficientStock),
		errors.Is(err, voucher.ErrVoucherExhausted):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, voucher.ErrVoucherNotFound),
		errors.Is(err, stock.ErrVariantNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, cart.ErrCartItemNotFound):
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, voucher.ErrVoucherExpired),
		errors.Is(err, voucher.ErrVoucherOutOfRange),
		errors.Is(err, voucher.ErrVoucherAlreadyUsed),
		errors.Is(err, address.ErrAddressInvalid),
		errors.Is(err, cart.ErrCartEmpty),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, stock.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidStateTransition):
		utils.WriteJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, order.ErrUnauthorized),
		errors.Is(err, checkout.ErrUnauthenticated),
		errors.Is(err, cart.ErrNoCartIdentity):
		utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
	default:
		logger.FromCtx(r.Context()).Error("unhandled request error",
			zap.String("path", r.URL.Path), zap.Error(err))
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
