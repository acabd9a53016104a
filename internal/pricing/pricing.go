package pricing

import (
	"shopora-be/internal/address"
	"shopora-be/internal/voucher"
)

// LineItem is a priced cart line; the unit price comes from the live catalog
// read at checkout, never from the client.
type LineItem struct {
	VariantID string
	Quantity  int
	UnitPrice int64
}

// Breakdown is what the calculator returns and what gets frozen onto the
// order. FinalTotal = Subtotal - Discount + ShippingFee, floored at zero.
type Breakdown struct {
	Subtotal    int64
	Discount    int64
	ShippingFee int64
	FinalTotal  int64
}

// ShippingPolicy maps a destination to a fee. Kept as an interface: the
// current two-tier table may well be a placeholder for a real carrier table.
type ShippingPolicy interface {
	Fee(addr *address.Address) int64
}

// TwoTierShipping charges a flat local rate for one reference city and a
// higher flat rate everywhere else.
type TwoTierShipping struct {
	ReferenceCity string
	LocalFee      int64
	RemoteFee     int64
}

func (p TwoTierShipping) Fee(addr *address.Address) int64 {
	if addr != nil && addr.City == p.ReferenceCity {
		return p.LocalFee
	}
	return p.RemoteFee
}

// Calculator is a pure pricing function; it never touches the ledgers.
type Calculator struct {
	shipping ShippingPolicy
	vouchers voucher.Service
}

func NewCalculator(shipping ShippingPolicy, vouchers voucher.Service) *Calculator {
	return &Calculator{shipping: shipping, vouchers: vouchers}
}

func (c *Calculator) Quote(items []LineItem, addr *address.Address, v *voucher.Voucher) Breakdown {
	var subtotal int64
	for _, item := range items {
		subtotal += item.UnitPrice * int64(item.Quantity)
	}

	discount := int64(0)
	if v != nil {
		discount = c.vouchers.ComputeDiscount(v, subtotal)
	}

	shippingFee := c.shipping.Fee(addr)

	finalTotal := subtotal - discount + shippingFee
	if finalTotal < 0 {
		finalTotal = 0
	}

	return Breakdown{
		Subtotal:    subtotal,
		Discount:    discount,
		ShippingFee: shippingFee,
		FinalTotal:  finalTotal,
	}
}
