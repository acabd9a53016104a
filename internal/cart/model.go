package cart

import "time"

// CartItem is one cart line joined with its live variant data. Price and
// stock here are informational; checkout re-reads both.
type CartItem struct {
	ID        uint
	VariantID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time

	ProductName string
	VariantName string
	Color       string
	Size        string
	UnitPrice   int64
	Stock       int
	IsActive    bool
}

type AddItemParams struct {
	VariantID string
	Quantity  int
}

type UpdateItemParams struct {
	VariantID string
	Quantity  int
}
