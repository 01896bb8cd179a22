package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickbill/quickbill/internal/platform/db"
	"github.com/quickbill/quickbill/internal/platform/httpx"
)

// Repository persists staged stock rows in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const stockColumns = `id, name, code, barcode, purchase_price, mrp, quantity, unit, created_at, updated_at`

func scanStagedItem(row pgx.Row) (StagedItem, error) {
	var s StagedItem
	err := row.Scan(&s.ID, &s.Name, &s.Code, &s.Barcode, &s.PurchasePrice, &s.MRP,
		&s.Quantity, &s.Unit, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", httpx.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// List returns a page of staged rows plus the total count.
func (r *Repository) List(ctx context.Context, limit, offset int, filters ListFilters) ([]StagedItem, int, error) {
	clause := "1=1"
	args := []any{}
	if filters.Search != "" {
		clause = "(name ILIKE $1 OR code ILIKE $1 OR barcode ILIKE $1)"
		args = append(args, "%"+filters.Search+"%")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT %s FROM stock WHERE %s ORDER BY name LIMIT $%d OFFSET $%d`,
		stockColumns, clause, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	staged := []StagedItem{}
	for rows.Next() {
		s, err := scanStagedItem(rows)
		if err != nil {
			return nil, 0, err
		}
		staged = append(staged, s)
	}
	return staged, total, rows.Err()
}

// Get loads one staged row.
func (r *Repository) Get(ctx context.Context, id int64) (StagedItem, error) {
	s, err := scanStagedItem(r.pool.QueryRow(ctx, `SELECT `+stockColumns+` FROM stock WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return StagedItem{}, fmt.Errorf("%w: stock row %d", httpx.ErrNotFound, id)
	}
	return s, err
}

// Create inserts a new staged row.
func (r *Repository) Create(ctx context.Context, req UpsertStagedItemRequest) (StagedItem, error) {
	s, err := scanStagedItem(r.pool.QueryRow(ctx, `INSERT INTO stock (name, code, barcode, purchase_price, mrp, quantity, unit, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW()) RETURNING `+stockColumns,
		req.Name, req.Code, req.Barcode, req.PurchasePrice, req.MRP, req.Quantity, req.Unit))
	if err != nil {
		return StagedItem{}, mapUniqueViolation(err)
	}
	return s, nil
}

// Update replaces a staged row.
func (r *Repository) Update(ctx context.Context, id int64, req UpsertStagedItemRequest) (StagedItem, error) {
	s, err := scanStagedItem(r.pool.QueryRow(ctx, `UPDATE stock SET name=$2, code=$3, barcode=$4, purchase_price=$5, mrp=$6, quantity=$7, unit=$8, updated_at=NOW()
WHERE id=$1 RETURNING `+stockColumns,
		id, req.Name, req.Code, req.Barcode, req.PurchasePrice, req.MRP, req.Quantity, req.Unit))
	if errors.Is(err, pgx.ErrNoRows) {
		return StagedItem{}, fmt.Errorf("%w: stock row %d", httpx.ErrNotFound, id)
	}
	if err != nil {
		return StagedItem{}, mapUniqueViolation(err)
	}
	return s, nil
}

// Delete removes a staged row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM stock WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: stock row %d", httpx.ErrNotFound, id)
	}
	return nil
}

// Move promotes a staged row into the items catalog and removes it, in one
// transaction. A barcode collision in items rolls both steps back.
func (r *Repository) Move(ctx context.Context, id int64, req MoveRequest) (int64, error) {
	var itemID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		staged, err := scanStagedItem(tx.QueryRow(ctx, `SELECT `+stockColumns+` FROM stock WHERE id=$1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: stock row %d", httpx.ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx, `INSERT INTO items (name, code, barcode, selling_price, purchase_price, mrp, stock, unit, tax_rate, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW()) RETURNING id`,
			staged.Name, staged.Code, staged.Barcode, req.SellingPrice, staged.PurchasePrice,
			staged.MRP, staged.Quantity, staged.Unit, req.TaxRate).Scan(&itemID)
		if err != nil {
			return mapUniqueViolation(err)
		}
		_, err = tx.Exec(ctx, `DELETE FROM stock WHERE id=$1`, id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return itemID, nil
}
