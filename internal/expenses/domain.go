package expenses

import "time"

// Expense is a standalone business cost, unconnected to parties or stock.
type Expense struct {
	ID        int64     `json:"id"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"expense_date"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertExpenseRequest is the creation/update payload.
type UpsertExpenseRequest struct {
	Category string    `json:"category" validate:"required,max=100"`
	Amount   float64   `json:"amount" validate:"required,gt=0"`
	Date     time.Time `json:"expense_date"`
	Notes    *string   `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// ListFilters narrows expense listings.
type ListFilters struct {
	Category string
	From     *time.Time
	To       *time.Time
}
