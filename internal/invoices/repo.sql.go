package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/quickbill/quickbill/internal/shared"
)

const invoiceColumns = `id, type, number, date, party_id, supplier_id, total_amount, total_tax, round_off, amount_paid, amount_due, due_status, payment_mode, notes, original_invoice_id, is_closed, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Type, &inv.Number, &inv.Date, &inv.PartyID, &inv.SupplierID,
		&inv.TotalAmount, &inv.TotalTax, &inv.RoundOff, &inv.AmountPaid, &inv.AmountDue,
		&inv.DueStatus, &inv.PaymentMode, &inv.Notes, &inv.OriginalInvoiceID, &inv.IsClosed,
		&inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

// GetInvoice loads an invoice header and its lines.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, []Line, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, nil, ErrNotFound
		}
		return Invoice{}, nil, err
	}
	lines, err := r.loadLines(ctx, id)
	if err != nil {
		return Invoice{}, nil, err
	}
	return inv, lines, nil
}

func (r *Repository) loadLines(ctx context.Context, invoiceID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, item_id, item_name, quantity, unit_price, tax_rate, total
FROM invoice_items WHERE invoice_id=$1 ORDER BY id ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []Line{}
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.ItemID, &line.ItemName, &line.Quantity, &line.UnitPrice, &line.TaxRate, &line.Total); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

var invoiceSortColumns = map[string]string{
	"date":   "date",
	"number": "number",
	"total":  "total_amount",
	"status": "due_status",
}

// ListInvoices returns a filtered page of invoice headers plus the total count.
func (r *Repository) ListInvoices(ctx context.Context, limit, offset int, filters ListFilters) ([]Invoice, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1
	add := func(clause string, value any) {
		where = append(where, fmt.Sprintf(clause, idx))
		args = append(args, value)
		idx++
	}
	if filters.Type != "" {
		add("type=$%d", string(filters.Type))
	}
	if filters.PartyID > 0 {
		add("party_id=$%d", filters.PartyID)
	}
	if !filters.From.IsZero() {
		add("date >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("date <= $%d", filters.To)
	}
	if filters.Search != "" {
		add("number ILIKE $%d", "%"+filters.Search+"%")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortBy := shared.SortColumn(filters.SortBy, "date", invoiceSortColumns)
	order := fmt.Sprintf(" ORDER BY %s %s, id DESC LIMIT $%d OFFSET $%d", sortBy, shared.SortDirection(filters.SortDir), idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE `+clause+order, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	invoices := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

// HasReturnColumns checks the schema carries the columns the return
// transaction depends on. Operational guard against running against an old
// database, not a business rule.
func (r *Repository) HasReturnColumns(ctx context.Context) (bool, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM information_schema.columns
WHERE table_name='invoices' AND column_name IN ('original_invoice_id','is_closed')`).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 2, nil
}

// CountReturnsAgainst counts RETURN/PURCHASE_RETURN invoices linked to id.
func (r *Repository) CountReturnsAgainst(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE original_invoice_id=$1`, id).Scan(&count)
	return count, err
}

func (r *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	date := inv.Date
	if date.IsZero() {
		date = time.Now()
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO invoices (type, number, date, party_id, supplier_id, total_amount, total_tax, round_off, amount_paid, amount_due, due_status, payment_mode, notes, original_invoice_id, is_closed, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,NOW(),NOW()) RETURNING id`,
		string(inv.Type), inv.Number, date, inv.PartyID, inv.SupplierID, inv.TotalAmount, inv.TotalTax, inv.RoundOff,
		inv.AmountPaid, inv.AmountDue, string(inv.DueStatus), inv.PaymentMode, inv.Notes, inv.OriginalInvoiceID, inv.IsClosed).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLine(ctx context.Context, line Line) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO invoice_items (invoice_id, item_id, item_name, quantity, unit_price, tax_rate, total)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		line.InvoiceID, line.ItemID, line.ItemName, line.Quantity, line.UnitPrice, line.TaxRate, line.Total).Scan(&id)
	return id, err
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	return inv, err
}

func (r *txRepository) GetLinesForUpdate(ctx context.Context, invoiceID int64) ([]Line, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, invoice_id, item_id, item_name, quantity, unit_price, tax_rate, total
FROM invoice_items WHERE invoice_id=$1 ORDER BY id ASC FOR UPDATE`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []Line{}
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.ItemID, &line.ItemName, &line.Quantity, &line.UnitPrice, &line.TaxRate, &line.Total); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *txRepository) UpdateLineQuantity(ctx context.Context, lineID int64, quantity, total float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE invoice_items SET quantity=$2, total=$3 WHERE id=$1`, lineID, quantity, total)
	return err
}

func (r *txRepository) DeleteLines(ctx context.Context, invoiceID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id=$1`, invoiceID)
	return err
}

func (r *txRepository) UpdateInvoiceHeader(ctx context.Context, inv Invoice) error {
	tag, err := r.tx.Exec(ctx, `UPDATE invoices SET date=$2, party_id=$3, supplier_id=$4, total_amount=$5, total_tax=$6, round_off=$7, amount_paid=$8, amount_due=$9, due_status=$10, payment_mode=$11, notes=$12, updated_at=NOW() WHERE id=$1`,
		inv.ID, inv.Date, inv.PartyID, inv.SupplierID, inv.TotalAmount, inv.TotalTax, inv.RoundOff, inv.AmountPaid, inv.AmountDue, string(inv.DueStatus), inv.PaymentMode, inv.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecomputeInvoiceTotal sets total_amount to the live sum of the invoice's
// line totals and returns the new value. Summing instead of subtracting the
// return amount keeps the header from drifting over repeated returns.
func (r *txRepository) RecomputeInvoiceTotal(ctx context.Context, invoiceID int64) (float64, error) {
	var total float64
	err := r.tx.QueryRow(ctx, `UPDATE invoices
SET total_amount = COALESCE((SELECT SUM(total) FROM invoice_items WHERE invoice_id=$1), 0), updated_at=NOW()
WHERE id=$1 RETURNING total_amount`, invoiceID).Scan(&total)
	return total, err
}

func (r *txRepository) CloseInvoice(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE invoices SET is_closed=TRUE, updated_at=NOW() WHERE id=$1`, id)
	return err
}

func (r *txRepository) DeleteInvoice(ctx context.Context, id int64) error {
	if err := r.DeleteLines(ctx, id); err != nil {
		return err
	}
	tag, err := r.tx.Exec(ctx, `DELETE FROM invoices WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) AdjustItemStock(ctx context.Context, itemID int64, delta float64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE items SET stock = stock + $2, updated_at=NOW() WHERE id=$1`, itemID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %d not found", itemID)
	}
	return nil
}

func (r *txRepository) AdjustPartyBalance(ctx context.Context, partyID int64, delta float64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE parties SET balance = balance + $2, updated_at=NOW() WHERE id=$1`, partyID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("party %d not found", partyID)
	}
	return nil
}

func (r *txRepository) AdjustSupplierBalance(ctx context.Context, supplierID int64, delta float64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE suppliers SET balance = balance + $2, updated_at=NOW() WHERE id=$1`, supplierID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("supplier %d not found", supplierID)
	}
	return nil
}

func (r *txRepository) InsertReturnAudit(ctx context.Context, audit ReturnAudit) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO sale_return_audit (original_invoice_id, return_invoice_id, item_id, quantity, reason, processed_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())`,
		audit.OriginalInvoiceID, audit.ReturnInvoiceID, audit.ItemID, audit.Quantity, audit.Reason, audit.ProcessedBy)
	return err
}
