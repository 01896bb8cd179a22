package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs aggregate queries for reporting.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InvoiceTotals sums invoices of one type, net of their returns, over a
// range. Return invoices carry the original type's opposite sign via the
// counterType argument.
func (r *Repository) InvoiceTotals(ctx context.Context, invoiceType, counterType string, from, to time.Time) (float64, int, error) {
	var gross float64
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount),0), COUNT(*) FROM invoices
WHERE type=$1 AND date >= $2 AND date <= $3`, invoiceType, from, to).Scan(&gross, &count)
	if err != nil {
		return 0, 0, err
	}
	var returned float64
	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount),0) FROM invoices
WHERE type=$1 AND date >= $2 AND date <= $3`, counterType, from, to).Scan(&returned)
	if err != nil {
		return 0, 0, err
	}
	return gross - returned, count, nil
}

// ExpenseTotal sums expenses over a range.
func (r *Repository) ExpenseTotal(ctx context.Context, from, to time.Time) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount),0) FROM expenses
WHERE expense_date >= $1 AND expense_date <= $2`, from, to).Scan(&total)
	return total, err
}

// Receivables sums positive party balances.
func (r *Repository) Receivables(ctx context.Context) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(balance),0) FROM parties WHERE balance > 0`).Scan(&total)
	return total, err
}

// Payables sums what the business owes suppliers.
func (r *Repository) Payables(ctx context.Context) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(-balance),0) FROM suppliers WHERE balance < 0`).Scan(&total)
	return total, err
}

// TopItems lists the best-selling items by quantity over a range.
func (r *Repository) TopItems(ctx context.Context, from, to time.Time, limit int) ([]TopItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT ii.item_id, ii.item_name, SUM(ii.quantity), SUM(ii.total)
FROM invoice_items ii
JOIN invoices i ON i.id = ii.invoice_id
WHERE i.type = 'SALE' AND i.date >= $1 AND i.date <= $2
GROUP BY ii.item_id, ii.item_name
ORDER BY SUM(ii.quantity) DESC
LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TopItem{}
	for rows.Next() {
		var item TopItem
		if err := rows.Scan(&item.ItemID, &item.Name, &item.Quantity, &item.Amount); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DaybookInvoices lists one day's invoices in order.
func (r *Repository) DaybookInvoices(ctx context.Context, day time.Time) ([]DaybookEntry, error) {
	start, end := dayBounds(day)
	rows, err := r.pool.Query(ctx, `SELECT id, number, type, total_amount, date
FROM invoices WHERE date >= $1 AND date < $2 ORDER BY date, id`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []DaybookEntry{}
	for rows.Next() {
		var e DaybookEntry
		if err := rows.Scan(&e.RefID, &e.Number, &e.Detail, &e.Amount, &e.At); err != nil {
			return nil, err
		}
		e.Kind = "INVOICE"
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DaybookPayments lists one day's payments in order.
func (r *Repository) DaybookPayments(ctx context.Context, day time.Time) ([]DaybookEntry, error) {
	start, end := dayBounds(day)
	rows, err := r.pool.Query(ctx, `SELECT id, direction, amount, payment_date
FROM payments WHERE payment_date >= $1 AND payment_date < $2 ORDER BY payment_date, id`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []DaybookEntry{}
	for rows.Next() {
		var e DaybookEntry
		if err := rows.Scan(&e.RefID, &e.Detail, &e.Amount, &e.At); err != nil {
			return nil, err
		}
		e.Kind = "PAYMENT"
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DaybookExpenses lists one day's expenses in order.
func (r *Repository) DaybookExpenses(ctx context.Context, day time.Time) ([]DaybookEntry, error) {
	start, end := dayBounds(day)
	rows, err := r.pool.Query(ctx, `SELECT id, category, amount, expense_date
FROM expenses WHERE expense_date >= $1 AND expense_date < $2 ORDER BY expense_date, id`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []DaybookEntry{}
	for rows.Next() {
		var e DaybookEntry
		if err := rows.Scan(&e.RefID, &e.Detail, &e.Amount, &e.At); err != nil {
			return nil, err
		}
		e.Kind = "EXPENSE"
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}
