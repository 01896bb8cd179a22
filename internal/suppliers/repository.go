package suppliers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickbill/quickbill/internal/platform/httpx"
	"github.com/quickbill/quickbill/internal/shared"
)

// Repository persists suppliers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const supplierColumns = `id, name, phone, email, address, gstin, balance, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Phone, &s.Email, &s.Address, &s.GSTIN,
		&s.Balance, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", httpx.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

var supplierSortColumns = map[string]string{
	"name":    "name",
	"balance": "balance",
	"created": "created_at",
}

// List returns a page of suppliers plus the total count.
func (r *Repository) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Supplier, int, error) {
	clause := "1=1"
	args := []any{}
	if filters.Search != "" {
		clause = "(name ILIKE $1 OR phone ILIKE $1 OR gstin ILIKE $1)"
		args = append(args, "%"+filters.Search+"%")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	sortBy := shared.SortColumn(filters.SortBy, "name", supplierSortColumns)
	query := fmt.Sprintf(`SELECT %s FROM suppliers WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		supplierColumns, clause, sortBy, shared.SortDirection(filters.SortDir), len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	suppliers := []Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, total, rows.Err()
}

// Get loads one supplier.
func (r *Repository) Get(ctx context.Context, id int64) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
	}
	return s, err
}

// Create inserts a new supplier seeded with the opening balance.
func (r *Repository) Create(ctx context.Context, req UpsertSupplierRequest) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, `INSERT INTO suppliers (name, phone, email, address, gstin, balance, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW()) RETURNING `+supplierColumns,
		req.Name, req.Phone, req.Email, req.Address, req.GSTIN, req.OpeningBalance))
	if err != nil {
		return Supplier{}, mapUniqueViolation(err)
	}
	return s, nil
}

// Update replaces a supplier's contact fields, leaving the balance alone.
func (r *Repository) Update(ctx context.Context, id int64, req UpsertSupplierRequest) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, `UPDATE suppliers SET name=$2, phone=$3, email=$4, address=$5, gstin=$6, updated_at=NOW()
WHERE id=$1 RETURNING `+supplierColumns,
		id, req.Name, req.Phone, req.Email, req.Address, req.GSTIN))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
	}
	if err != nil {
		return Supplier{}, mapUniqueViolation(err)
	}
	return s, nil
}

// CountInvoices reports how many invoices reference the supplier.
func (r *Repository) CountInvoices(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE supplier_id=$1`, id).Scan(&count)
	return count, err
}

// Delete removes a supplier. Callers run the invoice guard first.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
	}
	return nil
}
