package stock

import "time"

// StagedItem is a stock row awaiting promotion into the catalog. It carries
// purchase-side data only; selling price and tax rate arrive at move time.
type StagedItem struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code"`
	Barcode       *string   `json:"barcode,omitempty"`
	PurchasePrice float64   `json:"purchase_price"`
	MRP           float64   `json:"mrp"`
	Quantity      float64   `json:"quantity"`
	Unit          string    `json:"unit"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UpsertStagedItemRequest is the creation/update payload.
type UpsertStagedItemRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	Code          string  `json:"code" validate:"required,max=50"`
	Barcode       *string `json:"barcode,omitempty" validate:"omitempty,max=64"`
	PurchasePrice float64 `json:"purchase_price" validate:"gte=0"`
	MRP           float64 `json:"mrp" validate:"gte=0"`
	Quantity      float64 `json:"quantity" validate:"gte=0"`
	Unit          string  `json:"unit" validate:"omitempty,max=20"`
}

// MoveRequest carries the selling-side fields needed to promote a staged row
// into the items catalog.
type MoveRequest struct {
	SellingPrice float64 `json:"selling_price" validate:"required,gt=0"`
	TaxRate      float64 `json:"tax_rate" validate:"gte=0,lte=100"`
}

// ListFilters narrows staged stock listings.
type ListFilters struct {
	Search string
}
