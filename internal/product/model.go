package product

import "time"

type Status string

const (
	StatusInStock Status = "IN_STOCK"
	StatusSoldOut Status = "SOLD_OUT"
)

type Product struct {
	ID        uint       `json:"id"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	Status    Status     `json:"status"`
	Variants  []*Variant `json:"variants,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Variant is a sellable option of a product. Stock is tracked on the product.
type Variant struct {
	ID        uint   `json:"id"`
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
}

// CheckoutVariant is a variant joined with its locked product row.
type CheckoutVariant struct {
	Variant
	ProductName     string
	ProductQuantity int
	ProductStatus   Status
}

type ListOptions struct {
	Limit       int
	Page        int
	OnlyInStock bool
}
