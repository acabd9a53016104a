package stock

// Variant is a purchasable SKU: one color/size combination of a product with
// its own price and stock. Stock is mutated only through the ledger.
type Variant struct {
	ID          string
	ProductID   string
	ProductName string
	Name        string
	Color       string
	Size        string
	Price       int64
	Stock       int
	IsActive    bool
}

// Line is one reservation request.
type Line struct {
	VariantID string
	Quantity  int
}
