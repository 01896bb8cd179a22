package suppliers

import "time"

// Supplier is a vendor account. Balance is a running signed figure: negative
// means the business owes the supplier. It is adjusted incrementally by
// purchases, purchase returns and payments.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Address   *string   `json:"address,omitempty"`
	GSTIN     *string   `json:"gstin,omitempty"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertSupplierRequest is the creation/update payload.
type UpsertSupplierRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	Phone          *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email,max=200"`
	Address        *string `json:"address,omitempty" validate:"omitempty,max=500"`
	GSTIN          *string `json:"gstin,omitempty" validate:"omitempty,max=15"`
	OpeningBalance float64 `json:"opening_balance"`
}

// ListFilters narrows supplier listings.
type ListFilters struct {
	Search  string
	SortBy  string
	SortDir string
}
