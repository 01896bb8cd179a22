package expenses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickbill/quickbill/internal/platform/httpx"
)

// Repository persists expenses in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const expenseColumns = `id, category, amount, expense_date, notes, created_at, updated_at`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Category, &e.Amount, &e.Date, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// List returns a page of expenses plus the total count.
func (r *Repository) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Expense, int, error) {
	clause := "1=1"
	args := []any{}
	if filters.Category != "" {
		args = append(args, filters.Category)
		clause += fmt.Sprintf(" AND category=$%d", len(args))
	}
	if filters.From != nil {
		args = append(args, *filters.From)
		clause += fmt.Sprintf(" AND expense_date >= $%d", len(args))
	}
	if filters.To != nil {
		args = append(args, *filters.To)
		clause += fmt.Sprintf(" AND expense_date <= $%d", len(args))
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM expenses WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT %s FROM expenses WHERE %s ORDER BY expense_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		expenseColumns, clause, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	expenses := []Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		expenses = append(expenses, e)
	}
	return expenses, total, rows.Err()
}

// Get loads one expense.
func (r *Repository) Get(ctx context.Context, id int64) (Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, fmt.Errorf("%w: expense %d", httpx.ErrNotFound, id)
	}
	return e, err
}

// Create inserts a new expense.
func (r *Repository) Create(ctx context.Context, req UpsertExpenseRequest) (Expense, error) {
	return scanExpense(r.pool.QueryRow(ctx, `INSERT INTO expenses (category, amount, expense_date, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,NOW(),NOW()) RETURNING `+expenseColumns,
		req.Category, req.Amount, req.Date, req.Notes))
}

// Update replaces an expense.
func (r *Repository) Update(ctx context.Context, id int64, req UpsertExpenseRequest) (Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx, `UPDATE expenses SET category=$2, amount=$3, expense_date=$4, notes=$5, updated_at=NOW()
WHERE id=$1 RETURNING `+expenseColumns,
		id, req.Category, req.Amount, req.Date, req.Notes))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, fmt.Errorf("%w: expense %d", httpx.ErrNotFound, id)
	}
	return e, err
}

// Delete removes an expense.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expense %d", httpx.ErrNotFound, id)
	}
	return nil
}
