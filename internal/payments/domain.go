package payments

import "time"

// Direction of money flow. IN is money received from a party, OUT is money
// paid out to one.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// BalanceDelta is the multiplier applied to party balance when a payment of
// this direction is recorded. IN reduces what the party owes.
func (d Direction) BalanceDelta() float64 {
	if d == DirectionIn {
		return -1
	}
	return 1
}

// Payment is a money movement against a party account.
type Payment struct {
	ID        int64     `json:"id"`
	PartyID   int64     `json:"party_id"`
	Direction Direction `json:"direction"`
	Amount    float64   `json:"amount"`
	Mode      string    `json:"mode"`
	Date      time.Time `json:"payment_date"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreatePaymentRequest is the creation payload.
type CreatePaymentRequest struct {
	PartyID   int64     `json:"party_id" validate:"required,gt=0"`
	Direction Direction `json:"direction" validate:"required,oneof=IN OUT"`
	Amount    float64   `json:"amount" validate:"required,gt=0"`
	Mode      string    `json:"mode" validate:"omitempty,max=30"`
	Date      time.Time `json:"payment_date"`
	Notes     *string   `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// ListFilters narrows payment listings.
type ListFilters struct {
	PartyID   int64
	Direction Direction
	From      *time.Time
	To        *time.Time
}
