package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quickbill/quickbill/internal/platform/httpx"
)

type stubReportRepo struct {
	salesTotal    float64
	purchaseTotal float64
	expenseTotal  float64
	receivables   float64
	payables      float64
	topItems      []TopItem
	invoices      []DaybookEntry
	payments      []DaybookEntry
	expenses      []DaybookEntry
	failOn        string
}

var errQueryFailed = errors.New("query failed")

func (r *stubReportRepo) InvoiceTotals(ctx context.Context, invoiceType, counterType string, from, to time.Time) (float64, int, error) {
	if r.failOn == invoiceType {
		return 0, 0, errQueryFailed
	}
	if invoiceType == "SALE" {
		return r.salesTotal, 2, nil
	}
	return r.purchaseTotal, 1, nil
}

func (r *stubReportRepo) ExpenseTotal(ctx context.Context, from, to time.Time) (float64, error) {
	return r.expenseTotal, nil
}

func (r *stubReportRepo) Receivables(ctx context.Context) (float64, error) {
	return r.receivables, nil
}

func (r *stubReportRepo) Payables(ctx context.Context) (float64, error) {
	return r.payables, nil
}

func (r *stubReportRepo) TopItems(ctx context.Context, from, to time.Time, limit int) ([]TopItem, error) {
	return r.topItems, nil
}

func (r *stubReportRepo) DaybookInvoices(ctx context.Context, day time.Time) ([]DaybookEntry, error) {
	return r.invoices, nil
}

func (r *stubReportRepo) DaybookPayments(ctx context.Context, day time.Time) ([]DaybookEntry, error) {
	return r.payments, nil
}

func (r *stubReportRepo) DaybookExpenses(ctx context.Context, day time.Time) ([]DaybookEntry, error) {
	return r.expenses, nil
}

func TestSummaryAggregates(t *testing.T) {
	repo := &stubReportRepo{
		salesTotal:    5000,
		purchaseTotal: 3000,
		expenseTotal:  700,
		receivables:   1200,
		payables:      450,
		topItems:      []TopItem{{ItemID: 1, Name: "Widget", Quantity: 40, Amount: 4000}},
	}
	svc := NewService(repo)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	summary, err := svc.Summary(context.Background(), from, to)
	require.NoError(t, err)
	require.InDelta(t, 5000, summary.SalesTotal, 0.001)
	require.InDelta(t, 3000, summary.PurchaseTotal, 0.001)
	require.InDelta(t, 700, summary.ExpenseTotal, 0.001)
	require.InDelta(t, 1200, summary.Receivables, 0.001)
	require.InDelta(t, 450, summary.Payables, 0.001)
	require.Len(t, summary.TopItems, 1)
}

func TestSummaryRejectsInvertedRange(t *testing.T) {
	svc := NewService(&stubReportRepo{})

	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Summary(context.Background(), to.AddDate(0, 1, 0), to)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSummaryPropagatesQueryFailure(t *testing.T) {
	svc := NewService(&stubReportRepo{failOn: "SALE"})

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Summary(context.Background(), from, from.AddDate(0, 1, 0))
	require.ErrorIs(t, err, errQueryFailed)
}

func TestDaybookMergesChronologically(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	repo := &stubReportRepo{
		invoices: []DaybookEntry{{Kind: "INVOICE", RefID: 1, At: day.Add(9 * time.Hour)}},
		payments: []DaybookEntry{{Kind: "PAYMENT", RefID: 2, At: day.Add(8 * time.Hour)}},
		expenses: []DaybookEntry{{Kind: "EXPENSE", RefID: 3, At: day.Add(10 * time.Hour)}},
	}
	svc := NewService(repo)

	entries, err := svc.Daybook(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "PAYMENT", entries[0].Kind)
	require.Equal(t, "INVOICE", entries[1].Kind)
	require.Equal(t, "EXPENSE", entries[2].Kind)
}
