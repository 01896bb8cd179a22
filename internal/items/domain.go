package items

import "time"

// Item is a catalog/inventory entry. Stock is a soft expectation: manual
// adjustments may push it negative.
type Item struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code"`
	Barcode       *string   `json:"barcode,omitempty"`
	SellingPrice  float64   `json:"selling_price"`
	PurchasePrice float64   `json:"purchase_price"`
	MRP           float64   `json:"mrp"`
	Stock         float64   `json:"stock"`
	Unit          string    `json:"unit"`
	TaxRate       float64   `json:"tax_rate"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UpsertItemRequest is the creation/update payload.
type UpsertItemRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	Code          string  `json:"code" validate:"required,max=50"`
	Barcode       *string `json:"barcode,omitempty" validate:"omitempty,max=64"`
	SellingPrice  float64 `json:"selling_price" validate:"gte=0"`
	PurchasePrice float64 `json:"purchase_price" validate:"gte=0"`
	MRP           float64 `json:"mrp" validate:"gte=0"`
	Stock         float64 `json:"stock"`
	Unit          string  `json:"unit" validate:"omitempty,max=20"`
	TaxRate       float64 `json:"tax_rate" validate:"gte=0,lte=100"`
}

// AdjustStockRequest applies a signed stock delta.
type AdjustStockRequest struct {
	Delta float64 `json:"delta" validate:"required"`
	Note  string  `json:"note,omitempty" validate:"max=200"`
}

// ListFilters narrows item listings.
type ListFilters struct {
	Search  string
	SortBy  string
	SortDir string
}
