package parties

import "time"

// Party is a customer account. Balance is a running signed figure: positive
// means the party owes the business, negative means the business owes the
// party. It is adjusted incrementally by invoices, returns and payments and
// never recomputed from scratch.
type Party struct {
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

// UpsertPartyRequest is the creation/update payload. OpeningBalance only
// applies on create; updates leave the running balance alone.
type UpsertPartyRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	Phone          *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email,max=200"`
	Address        *string `json:"address,omitempty" validate:"omitempty,max=500"`
	GSTIN          *string `json:"gstin,omitempty" validate:"omitempty,max=15"`
	OpeningBalance float64 `json:"opening_balance"`
}

// LedgerEntry is one balance-affecting event in a party's history.
type LedgerEntry struct {
	Kind      string    `json:"kind"` // INVOICE or PAYMENT
	RefID     int64     `json:"ref_id"`
	RefNumber string    `json:"ref_number,omitempty"`
	Detail    string    `json:"detail"`
	Amount    float64   `json:"amount"` // signed effect on balance
	At        time.Time `json:"at"`
}

// ListFilters narrows party listings.
type ListFilters struct {
	Search  string
	SortBy  string
	SortDir string
}
