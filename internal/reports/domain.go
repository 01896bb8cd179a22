package reports

import "time"

// Summary aggregates the business's position over a date range.
type Summary struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	SalesTotal    float64   `json:"sales_total"`
	SalesCount    int       `json:"sales_count"`
	PurchaseTotal float64   `json:"purchase_total"`
	PurchaseCount int       `json:"purchase_count"`
	ExpenseTotal  float64   `json:"expense_total"`
	Receivables   float64   `json:"receivables"`
	Payables      float64   `json:"payables"`
	TopItems      []TopItem `json:"top_items"`
}

// TopItem is one row of the best-sellers list.
type TopItem struct {
	ItemID   int64   `json:"item_id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Amount   float64 `json:"amount"`
}

// DaybookEntry is one event of a single day's activity.
type DaybookEntry struct {
	Kind   string    `json:"kind"` // INVOICE, PAYMENT or EXPENSE
	RefID  int64     `json:"ref_id"`
	Number string    `json:"number,omitempty"`
	Detail string    `json:"detail"`
	Amount float64   `json:"amount"`
	At     time.Time `json:"at"`
}
