package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickbill/quickbill/internal/platform/db"
	"github.com/quickbill/quickbill/internal/platform/httpx"
)

// Repository persists payments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const paymentColumns = `id, party_id, direction, amount, mode, payment_date, notes, created_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.PartyID, &p.Direction, &p.Amount, &p.Mode, &p.Date, &p.Notes, &p.CreatedAt)
	return p, err
}

// List returns a page of payments plus the total count.
func (r *Repository) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Payment, int, error) {
	clause := "1=1"
	args := []any{}
	if filters.PartyID > 0 {
		args = append(args, filters.PartyID)
		clause += fmt.Sprintf(" AND party_id=$%d", len(args))
	}
	if filters.Direction != "" {
		args = append(args, filters.Direction)
		clause += fmt.Sprintf(" AND direction=$%d", len(args))
	}
	if filters.From != nil {
		args = append(args, *filters.From)
		clause += fmt.Sprintf(" AND payment_date >= $%d", len(args))
	}
	if filters.To != nil {
		args = append(args, *filters.To)
		clause += fmt.Sprintf(" AND payment_date <= $%d", len(args))
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE %s ORDER BY payment_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		paymentColumns, clause, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	payments := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		payments = append(payments, p)
	}
	return payments, total, rows.Err()
}

// Get loads one payment.
func (r *Repository) Get(ctx context.Context, id int64) (Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, fmt.Errorf("%w: payment %d", httpx.ErrNotFound, id)
	}
	return p, err
}

// Create inserts the payment and adjusts the party balance in one
// transaction.
func (r *Repository) Create(ctx context.Context, req CreatePaymentRequest, balanceDelta float64) (Payment, error) {
	var payment Payment
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		payment, err = scanPayment(tx.QueryRow(ctx, `INSERT INTO payments (party_id, direction, amount, mode, payment_date, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW()) RETURNING `+paymentColumns,
			req.PartyID, req.Direction, req.Amount, req.Mode, req.Date, req.Notes))
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE parties SET balance = balance + $2, updated_at=NOW() WHERE id=$1`, req.PartyID, balanceDelta)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: party %d", httpx.ErrNotFound, req.PartyID)
		}
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	return payment, nil
}

// Delete removes the payment and reverses its balance adjustment in one
// transaction.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		payment, err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: payment %d", httpx.ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM payments WHERE id=$1`, id); err != nil {
			return err
		}
		reversal := -payment.Direction.BalanceDelta() * payment.Amount
		_, err = tx.Exec(ctx, `UPDATE parties SET balance = balance + $2, updated_at=NOW() WHERE id=$1`, payment.PartyID, reversal)
		return err
	})
}
