package items

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

// Repository persists catalog items in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id, name, code, barcode, selling_price, purchase_price, mrp, stock, unit, tax_rate, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.Name, &item.Code, &item.Barcode, &item.SellingPrice,
		&item.PurchasePrice, &item.MRP, &item.Stock, &item.Unit, &item.TaxRate,
		&item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", httpx.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

var itemSortColumns = map[string]string{
	"name":  "name",
	"code":  "code",
	"stock": "stock",
	"price": "selling_price",
}

// List returns a page of items plus the total count.
func (r *Repository) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Item, int, error) {
	clause := "1=1"
	args := []any{}
	if filters.Search != "" {
		clause = "(name ILIKE $1 OR code ILIKE $1 OR barcode ILIKE $1)"
		args = append(args, "%"+filters.Search+"%")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	sortBy := shared.SortColumn(filters.SortBy, "name", itemSortColumns)
	query := fmt.Sprintf(`SELECT %s FROM items WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		itemColumns, clause, sortBy, shared.SortDirection(filters.SortDir), len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// Get loads one item.
func (r *Repository) Get(ctx context.Context, id int64) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
	}
	return item, err
}

// Create inserts a new item.
func (r *Repository) Create(ctx context.Context, req UpsertItemRequest) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `INSERT INTO items (name, code, barcode, selling_price, purchase_price, mrp, stock, unit, tax_rate, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW()) RETURNING `+itemColumns,
		req.Name, req.Code, req.Barcode, req.SellingPrice, req.PurchasePrice, req.MRP, req.Stock, req.Unit, req.TaxRate))
	if err != nil {
		return Item{}, mapUniqueViolation(err)
	}
	return item, nil
}

// Update replaces an item's mutable fields.
func (r *Repository) Update(ctx context.Context, id int64, req UpsertItemRequest) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `UPDATE items SET name=$2, code=$3, barcode=$4, selling_price=$5, purchase_price=$6, mrp=$7, stock=$8, unit=$9, tax_rate=$10, updated_at=NOW()
WHERE id=$1 RETURNING `+itemColumns,
		id, req.Name, req.Code, req.Barcode, req.SellingPrice, req.PurchasePrice, req.MRP, req.Stock, req.Unit, req.TaxRate))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
	}
	if err != nil {
		return Item{}, mapUniqueViolation(err)
	}
	return item, nil
}

// CountInvoiceReferences reports how many invoice lines reference the item.
func (r *Repository) CountInvoiceReferences(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoice_items WHERE item_id=$1`, id).Scan(&count)
	return count, err
}

// Delete removes an item. Callers run the reference guard first.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
	}
	return nil
}

// AdjustStock applies a signed delta and returns the new quantity.
func (r *Repository) AdjustStock(ctx context.Context, id int64, delta float64) (float64, error) {
	var stock float64
	err := r.pool.QueryRow(ctx, `UPDATE items SET stock = stock + $2, updated_at=NOW() WHERE id=$1 RETURNING stock`, id, delta).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
	}
	return stock, err
}
