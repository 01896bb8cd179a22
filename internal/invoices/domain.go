package invoices

import (
	"errors"
	"time"
)

// InvoiceType discriminates the four transaction kinds. The type of an
// invoice is immutable after creation.
type InvoiceType string

const (
	TypeSale           InvoiceType = "SALE"
	TypeReturn         InvoiceType = "RETURN"
	TypePurchase       InvoiceType = "PURCHASE"
	TypePurchaseReturn InvoiceType = "PURCHASE_RETURN"
)

// Valid reports whether t is one of the known invoice types.
func (t InvoiceType) Valid() bool {
	switch t {
	case TypeSale, TypeReturn, TypePurchase, TypePurchaseReturn:
		return true
	}
	return false
}

// IsReturn reports whether t is a credit or debit note.
func (t InvoiceType) IsReturn() bool {
	return t == TypeReturn || t == TypePurchaseReturn
}

// StockDelta maps an invoice type to the per-unit stock movement it causes.
func (t InvoiceType) StockDelta() float64 {
	switch t {
	case TypeSale, TypePurchaseReturn:
		return -1
	case TypeReturn, TypePurchase:
		return 1
	}
	return 0
}

// BalanceDelta maps an invoice type to the sign of its effect on the
// counterparty's running balance. Balance is "what the counterparty owes the
// business": a sale increases it, a credit note decreases it, a purchase
// decreases it, a debit note increases it.
func (t InvoiceType) BalanceDelta() float64 {
	switch t {
	case TypeSale, TypePurchaseReturn:
		return 1
	case TypeReturn, TypePurchase:
		return -1
	}
	return 0
}

// DueStatus tracks settlement of an invoice.
type DueStatus string

const (
	DuePaid    DueStatus = "PAID"
	DuePending DueStatus = "DUE"
	DueOverdue DueStatus = "OVERDUE"
)

// Invoice is a transaction header.
type Invoice struct {
	ID                int64       `json:"id"`
	Type              InvoiceType `json:"type"`
	Number            string      `json:"number"`
	Date              time.Time   `json:"date"`
	PartyID           *int64      `json:"party_id,omitempty"`
	SupplierID        *int64      `json:"supplier_id,omitempty"`
	TotalAmount       float64     `json:"total_amount"`
	TotalTax          float64     `json:"total_tax"`
	RoundOff          float64     `json:"round_off"`
	AmountPaid        float64     `json:"amount_paid"`
	AmountDue         float64     `json:"amount_due"`
	DueStatus         DueStatus   `json:"due_status"`
	PaymentMode       string      `json:"payment_mode"`
	Notes             *string     `json:"notes,omitempty"`
	OriginalInvoiceID *int64      `json:"original_invoice_id,omitempty"`
	IsClosed          bool        `json:"is_closed"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	Lines             []Line      `json:"lines,omitempty"`
}

// Line is one item within an invoice. ItemName, UnitPrice and TaxRate are
// snapshots taken at transaction time. For a SALE line, Quantity is the
// remaining sellable quantity after prior returns; returns decrement it in
// place.
type Line struct {
	ID        int64   `json:"id"`
	InvoiceID int64   `json:"invoice_id"`
	ItemID    int64   `json:"item_id"`
	ItemName  string  `json:"item_name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	TaxRate   float64 `json:"tax_rate"`
	Total     float64 `json:"total"`
}

// ReturnAudit is the append-only record of one returned item.
type ReturnAudit struct {
	ID                int64     `json:"id"`
	OriginalInvoiceID int64     `json:"original_invoice_id"`
	ReturnInvoiceID   int64     `json:"return_invoice_id"`
	ItemID            int64     `json:"item_id"`
	Quantity          float64   `json:"quantity"`
	Reason            string    `json:"reason"`
	ProcessedBy       string    `json:"processed_by"`
	CreatedAt         time.Time `json:"created_at"`
}

// CreateInvoiceRequest is the tagged, validated creation payload. The client
// submits its computed totals; the server recomputes them from the raw lines
// and rejects disagreement, so the submitted totals are a display hint only.
type CreateInvoiceRequest struct {
	Type        InvoiceType      `json:"type" validate:"required"`
	Date        time.Time        `json:"date"`
	PartyID     *int64           `json:"party_id,omitempty" validate:"omitempty,gt=0"`
	SupplierID  *int64           `json:"supplier_id,omitempty" validate:"omitempty,gt=0"`
	TaxMode     string           `json:"tax_mode" validate:"omitempty,oneof=INCLUSIVE EXCLUSIVE"`
	GSTSplit    string           `json:"gst_split" validate:"omitempty,oneof=CGST_SGST IGST"`
	PaymentMode string           `json:"payment_mode" validate:"omitempty,max=30"`
	Notes       *string          `json:"notes,omitempty"`
	AmountPaid  float64          `json:"amount_paid" validate:"gte=0"`
	TotalAmount float64          `json:"total_amount" validate:"gte=0"`
	TotalTax    float64          `json:"total_tax" validate:"gte=0"`
	RoundOff    float64          `json:"round_off"`
	Items       []CreateLineItem `json:"items" validate:"required,min=1,dive"`
}

// CreateLineItem is one requested invoice line.
type CreateLineItem struct {
	ItemID   int64   `json:"item_id" validate:"required,gt=0"`
	Name     string  `json:"name" validate:"required,max=200"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
	Price    float64 `json:"price" validate:"gte=0"`
	TaxRate  float64 `json:"tax_rate" validate:"gte=0,lte=100"`
	MRP      float64 `json:"mrp" validate:"gte=0"`
}

// ReturnRequest asks for a partial or full return against an invoice.
type ReturnRequest struct {
	Items       []ReturnItem `json:"items" validate:"required,min=1,dive"`
	Reason      string       `json:"reason,omitempty" validate:"max=500"`
	ProcessedBy string       `json:"processed_by,omitempty" validate:"max=100"`
}

// ReturnItem identifies one line to return. Quantity is range-checked
// inside the transaction, after the item is matched to an invoice line.
type ReturnItem struct {
	ItemID   int64   `json:"item_id" validate:"required,gt=0"`
	Quantity float64 `json:"quantity"`
}

// ReturnResult is the successful outcome of a return transaction.
type ReturnResult struct {
	ReturnInvoiceID int64  `json:"return_invoice_id"`
	Message         string `json:"message"`
}

// ListFilters narrows invoice listings.
type ListFilters struct {
	Type    InvoiceType
	PartyID int64
	From    time.Time
	To      time.Time
	Search  string
	SortBy  string
	SortDir string
}

// Errors surfaced by the invoice and return flows.
var (
	ErrNotFound          = errors.New("invoice not found")
	ErrValidation        = errors.New("invalid invoice payload")
	ErrTypeImmutable     = errors.New("invoice type cannot change")
	ErrTotalsMismatch    = errors.New("submitted totals disagree with computed totals")
	ErrSchemaUnsupported = errors.New("invoices table is missing return columns")
	ErrNotReturnable     = errors.New("invoice type does not accept this return")
	ErrInvoiceClosed     = errors.New("invoice is closed")
	ErrNoLines           = errors.New("invoice has no line items")
	ErrItemNotOnInvoice  = errors.New("item not present on the original invoice")
	ErrOverReturn        = errors.New("return quantity exceeds remaining quantity")
	ErrFullyReturned     = errors.New("invoice already fully returned")
	ErrHasReturns        = errors.New("invoice has linked returns")
)
