package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quickbill/quickbill/internal/platform/httpx"
)

// RepositoryPort describes the aggregate queries used by Service.
type RepositoryPort interface {
	InvoiceTotals(ctx context.Context, invoiceType, counterType string, from, to time.Time) (float64, int, error)
	ExpenseTotal(ctx context.Context, from, to time.Time) (float64, error)
	Receivables(ctx context.Context) (float64, error)
	Payables(ctx context.Context) (float64, error)
	TopItems(ctx context.Context, from, to time.Time, limit int) ([]TopItem, error)
	DaybookInvoices(ctx context.Context, day time.Time) ([]DaybookEntry, error)
	DaybookPayments(ctx context.Context, day time.Time) ([]DaybookEntry, error)
	DaybookExpenses(ctx context.Context, day time.Time) ([]DaybookEntry, error)
}

// Service assembles reports.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

const topItemLimit = 10

// Summary gathers the range aggregates concurrently. Any failing query
// cancels the rest.
func (s *Service) Summary(ctx context.Context, from, to time.Time) (Summary, error) {
	if to.Before(from) {
		return Summary{}, fmt.Errorf("%w: 'to' precedes 'from'", httpx.ErrValidation)
	}
	summary := Summary{From: from, To: to}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, count, err := s.repo.InvoiceTotals(gctx, "SALE", "RETURN", from, to)
		summary.SalesTotal, summary.SalesCount = total, count
		return err
	})
	g.Go(func() error {
		total, count, err := s.repo.InvoiceTotals(gctx, "PURCHASE", "PURCHASE_RETURN", from, to)
		summary.PurchaseTotal, summary.PurchaseCount = total, count
		return err
	})
	g.Go(func() error {
		total, err := s.repo.ExpenseTotal(gctx, from, to)
		summary.ExpenseTotal = total
		return err
	})
	g.Go(func() error {
		total, err := s.repo.Receivables(gctx)
		summary.Receivables = total
		return err
	})
	g.Go(func() error {
		total, err := s.repo.Payables(gctx)
		summary.Payables = total
		return err
	})
	g.Go(func() error {
		items, err := s.repo.TopItems(gctx, from, to, topItemLimit)
		summary.TopItems = items
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// Daybook merges one day's invoices, payments and expenses chronologically.
func (s *Service) Daybook(ctx context.Context, day time.Time) ([]DaybookEntry, error) {
	var invoices, payments, expenses []DaybookEntry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoices, err = s.repo.DaybookInvoices(gctx, day)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.repo.DaybookPayments(gctx, day)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.repo.DaybookExpenses(gctx, day)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]DaybookEntry, 0, len(invoices)+len(payments)+len(expenses))
	entries = append(entries, invoices...)
	entries = append(entries, payments...)
	entries = append(entries, expenses...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].At.Before(entries[j].At) })
	return entries, nil
}
