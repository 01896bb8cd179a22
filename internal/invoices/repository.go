package invoices

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, []Line, error)
	ListInvoices(ctx context.Context, limit, offset int, filters ListFilters) ([]Invoice, int, error)
	HasReturnColumns(ctx context.Context) (bool, error)
	CountReturnsAgainst(ctx context.Context, id int64) (int, error)
}

// TxRepository exposes the operations available inside one transaction. The
// ForUpdate reads take row locks so concurrent returns against the same
// invoice serialise on the remaining-quantity check.
type TxRepository interface {
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error)
	GetLinesForUpdate(ctx context.Context, invoiceID int64) ([]Line, error)
	UpdateLineQuantity(ctx context.Context, lineID int64, quantity, total float64) error
	DeleteLines(ctx context.Context, invoiceID int64) error
	UpdateInvoiceHeader(ctx context.Context, inv Invoice) error
	RecomputeInvoiceTotal(ctx context.Context, invoiceID int64) (float64, error)
	CloseInvoice(ctx context.Context, id int64) error
	DeleteInvoice(ctx context.Context, id int64) error
	AdjustItemStock(ctx context.Context, itemID int64, delta float64) error
	AdjustPartyBalance(ctx context.Context, partyID int64, delta float64) error
	AdjustSupplierBalance(ctx context.Context, supplierID int64, delta float64) error
	InsertReturnAudit(ctx context.Context, audit ReturnAudit) error
}

// Repository persists invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("invoices repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
