package order

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

type PaymentMethod string

const (
	MethodCOD     PaymentMethod = "COD"
	MethodGateway PaymentMethod = "GATEWAY"
)

// Order is an immutable snapshot taken at checkout: item prices, quantities
// and the shipping address are frozen and stay valid however the catalog
// changes afterwards. Only Status, PaymentStatus and GatewayTxnID move, and
// only along defined transitions.
type Order struct {
	ID        uint
	OrderCode string
	UserID    uint

	Status        OrderStatus
	PaymentStatus PaymentStatus
	PaymentMethod PaymentMethod

	VoucherID    *uuid.UUID
	GatewayTxnID *string

	Subtotal    int64
	Discount    int64
	ShippingFee int64
	FinalTotal  int64

	Shipping AddressSnapshot
	Items    []OrderItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ID          uint
	OrderID     uint
	VariantID   string
	VariantName string
	ProductName string
	Color       string
	Size        string
	Quantity    int
	UnitPrice   int64
	Subtotal    int64
}

// AddressSnapshot is the shipping address copied onto the order at creation.
type AddressSnapshot struct {
	Name     string
	Phone    string
	Address1 string
	Address2 *string
	City     string
	Province string
	Postal   string
	Country  string
}

type SortDirection string

const (
	SortDirectionAsc  SortDirection = "ASC"
	SortDirectionDesc SortDirection = "DESC"
)

type OrderSortField string

const (
	OrderSortFieldTotal     OrderSortField = "TOTAL"
	OrderSortFieldCreatedAt OrderSortField = "CREATED_AT"
)

type OrderFilterInput struct {
	Search   *string
	Status   *OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

type OrderSortInput struct {
	Field     OrderSortField
	Direction SortDirection
}
