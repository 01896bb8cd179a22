package parties

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickbill/quickbill/internal/platform/db"
	"github.com/quickbill/quickbill/internal/platform/httpx"
	"github.com/quickbill/quickbill/internal/shared"
)

// Repository persists customer parties in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const partyColumns = `id, name, phone, email, address, gstin, balance, created_at, updated_at`

func scanParty(row pgx.Row) (Party, error) {
	var p Party
	err := row.Scan(&p.ID, &p.Name, &p.Phone, &p.Email, &p.Address, &p.GSTIN,
		&p.Balance, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

var partySortColumns = map[string]string{
	"name":    "name",
	"balance": "balance",
	"created": "created_at",
}

// List returns a page of parties plus the total count.
func (r *Repository) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Party, int, error) {
	clause := "1=1"
	args := []any{}
	if filters.Search != "" {
		clause = "(name ILIKE $1 OR phone ILIKE $1 OR gstin ILIKE $1)"
		args = append(args, "%"+filters.Search+"%")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM parties WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	sortBy := shared.SortColumn(filters.SortBy, "name", partySortColumns)
	query := fmt.Sprintf(`SELECT %s FROM parties WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		partyColumns, clause, sortBy, shared.SortDirection(filters.SortDir), len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	parties := []Party{}
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, 0, err
		}
		parties = append(parties, p)
	}
	return parties, total, rows.Err()
}

// Get loads one party.
func (r *Repository) Get(ctx context.Context, id int64) (Party, error) {
	p, err := scanParty(r.pool.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Party{}, fmt.Errorf("%w: party %d", httpx.ErrNotFound, id)
	}
	return p, err
}

// Create inserts a new party seeded with the opening balance.
func (r *Repository) Create(ctx context.Context, req UpsertPartyRequest) (Party, error) {
	return scanParty(r.pool.QueryRow(ctx, `INSERT INTO parties (name, phone, email, address, gstin, balance, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW()) RETURNING `+partyColumns,
		req.Name, req.Phone, req.Email, req.Address, req.GSTIN, req.OpeningBalance))
}

// Update replaces a party's contact fields, leaving the running balance alone.
func (r *Repository) Update(ctx context.Context, id int64, req UpsertPartyRequest) (Party, error) {
	p, err := scanParty(r.pool.QueryRow(ctx, `UPDATE parties SET name=$2, phone=$3, email=$4, address=$5, gstin=$6, updated_at=NOW()
WHERE id=$1 RETURNING `+partyColumns,
		id, req.Name, req.Phone, req.Email, req.Address, req.GSTIN))
	if errors.Is(err, pgx.ErrNoRows) {
		return Party{}, fmt.Errorf("%w: party %d", httpx.ErrNotFound, id)
	}
	return p, err
}

// CountInvoices reports how many invoices reference the party.
func (r *Repository) CountInvoices(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE party_id=$1`, id).Scan(&count)
	return count, err
}

// Delete removes the party and its payments in one transaction. Callers run
// the invoice guard first.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM payments WHERE party_id=$1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM parties WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: party %d", httpx.ErrNotFound, id)
		}
		return nil
	})
}

// Ledger returns the party's balance-affecting events, oldest first.
func (r *Repository) Ledger(ctx context.Context, id int64) ([]LedgerEntry, error) {
	entries := []LedgerEntry{}

	rows, err := r.pool.Query(ctx, `SELECT id, number, type, total_amount, date
FROM invoices WHERE party_id=$1 ORDER BY date, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e LedgerEntry
		var invoiceType string
		if err := rows.Scan(&e.RefID, &e.RefNumber, &invoiceType, &e.Amount, &e.At); err != nil {
			return nil, err
		}
		e.Kind = "INVOICE"
		e.Detail = invoiceType
		// Returns and purchases reduce what the party owes.
		if invoiceType == "RETURN" || invoiceType == "PURCHASE" {
			e.Amount = -e.Amount
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	payRows, err := r.pool.Query(ctx, `SELECT id, direction, amount, payment_date
FROM payments WHERE party_id=$1 ORDER BY payment_date, id`, id)
	if err != nil {
		return nil, err
	}
	defer payRows.Close()
	for payRows.Next() {
		var e LedgerEntry
		var direction string
		if err := payRows.Scan(&e.RefID, &direction, &e.Amount, &e.At); err != nil {
			return nil, err
		}
		e.Kind = "PAYMENT"
		e.Detail = direction
		if direction == "IN" {
			e.Amount = -e.Amount
		}
		entries = append(entries, e)
	}
	if err := payRows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].At.Before(entries[j].At) })
	return entries, nil
}
