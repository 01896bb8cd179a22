package invoices

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newReturnFixture(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	svc := NewService(repo, nil, newMemoryIdempotency(), newMemoryCache(), nil)
	return svc, repo
}

// seedSale installs the worked example: one SALE invoice with a single line
// of item 7, quantity 10 at 100 with 18% exclusive tax (line total 1180).
func seedSale(repo *memoryRepo) int64 {
	partyID := int64(3)
	repo.nextID = 100
	repo.invoices[1] = Invoice{
		ID:          1,
		Type:        TypeSale,
		Number:      "INV-00000001",
		PartyID:     &partyID,
		TotalAmount: 1180,
		TotalTax:    180,
		PaymentMode: "CASH",
		DueStatus:   DuePending,
	}
	repo.lines[1] = []Line{{
		ID: 50, InvoiceID: 1, ItemID: 7, ItemName: "Widget",
		Quantity: 10, UnitPrice: 100, TaxRate: 18, Total: 1180,
	}}
	repo.stock[7] = 2
	repo.partyBalance[partyID] = 1180
	return 1
}

func TestSaleReturnPartial(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedSale(repo)

	result, err := svc.ReturnSale(context.Background(), id, ReturnRequest{
		Items:       []ReturnItem{{ItemID: 7, Quantity: 4}},
		Reason:      "damaged",
		ProcessedBy: "clerk-1",
	}, "")
	require.NoError(t, err)
	require.NotZero(t, result.ReturnInvoiceID)

	ret := repo.invoices[result.ReturnInvoiceID]
	require.Equal(t, TypeReturn, ret.Type)
	require.InDelta(t, 472.00, ret.TotalAmount, 0.001, "credit note is subtotal 400 plus tax 72")
	require.InDelta(t, 72.00, ret.TotalTax, 0.001)
	require.NotNil(t, ret.OriginalInvoiceID)
	require.Equal(t, id, *ret.OriginalInvoiceID)
	require.Equal(t, "CASH", ret.PaymentMode)
	require.NotNil(t, ret.Notes)
	require.Equal(t, "Return: damaged", *ret.Notes)

	retLines := repo.lines[result.ReturnInvoiceID]
	require.Len(t, retLines, 1)
	require.InDelta(t, 4, retLines[0].Quantity, 0.001)
	require.InDelta(t, 472.00, retLines[0].Total, 0.001)

	original := repo.invoices[id]
	line := repo.lines[id][0]
	require.InDelta(t, 6, line.Quantity, 0.001)
	require.InDelta(t, 708.00, line.Total, 0.001)
	require.InDelta(t, 708.00, original.TotalAmount, 0.001, "header total equals live sum of line totals")
	require.False(t, original.IsClosed)

	require.InDelta(t, 6, repo.stock[7], 0.001, "stock restocked by returned quantity")
	require.InDelta(t, 708.00, repo.partyBalance[3], 0.001, "balance reduced by the credit note amount")

	require.Len(t, repo.audits, 1)
	require.Equal(t, id, repo.audits[0].OriginalInvoiceID)
	require.Equal(t, result.ReturnInvoiceID, repo.audits[0].ReturnInvoiceID)
	require.Equal(t, "damaged", repo.audits[0].Reason)
	require.Equal(t, "clerk-1", repo.audits[0].ProcessedBy)
}

func TestSaleReturnFullClosesInvoice(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedSale(repo)

	_, err := svc.ReturnSale(context.Background(), id, ReturnRequest{
		Items: []ReturnItem{{ItemID: 7, Quantity: 4}},
	}, "")
	require.NoError(t, err)

	_, err = svc.ReturnSale(context.Background(), id, ReturnRequest{
		Items: []ReturnItem{{ItemID: 7, Quantity: 6}},
	}, "")
	require.NoError(t, err)

	original := repo.invoices[id]
	require.True(t, original.IsClosed)
	require.InDelta(t, 0.00, original.TotalAmount, 0.001)
	require.InDelta(t, 0, repo.lines[id][0].Quantity, 0.001)
	require.InDelta(t, 12, repo.stock[7], 0.001)
	require.InDelta(t, 0.00, repo.partyBalance[3], 0.001)
}

func TestSaleReturnDefaultNote(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedSale(repo)

	result, err := svc.ReturnSale(context.Background(), id, ReturnRequest{
		Items: []ReturnItem{{ItemID: 7, Quantity: 1}},
	}, "")
	require.NoError(t, err)
	require.Equal(t, "Sale Return", *repo.invoices[result.ReturnInvoiceID].Notes)
}

func TestOverReturnRollsBackEverything(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedSale(repo)
	before := repo.snapshot()

	_, err := svc.ReturnSale(context.Background(), id, ReturnRequest{
		Items: []ReturnItem{{ItemID: 7, Quantity: 11}},
	}, "")
	require.ErrorIs(t, err, ErrOverReturn)

	require.Equal(t, before.invoices, repo.invoices)
	require.Equal(t, before.lines, repo.lines)
	require.Equal(t, before.stock, repo.stock)
	require.Equal(t, before.partyBalance, repo.partyBalance)
	require.Equal(t, before.audits, repo.audits)
}

func TestOverReturnAcrossDuplicateItems(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedSale(repo)

	// 6 + 5 for the same item exceeds the remaining 10.
	_, err := svc.ReturnSale(context.Background(), id, ReturnRequest{
		Items: []ReturnItem{{ItemID: 7, Quantity: 6}, {ItemID: 7, Quantity: 5}},
	}, "")
	require.ErrorIs(t, err, ErrOverReturn)
}

func TestReturnValidationFailures(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedSale(repo)
	ctx := context.Background()

	_, err := svc.ReturnSale(ctx, 0, ReturnRequest{Items: []ReturnItem{{ItemID: 7, Quantity: 1}}}, "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.ReturnSale(ctx, id, ReturnRequest{}, "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.ReturnSale(ctx, 999, ReturnRequest{Items: []ReturnItem{{ItemID: 7, Quantity: 1}}}, "")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ReturnSale(ctx, id, ReturnRequest{Items: []ReturnItem{{ItemID: 8, Quantity: 1}}}, "")
	require.ErrorIs(t, err, ErrItemNotOnInvoice)

	_, err = svc.ReturnPurchase(ctx, id, ReturnRequest{Items: []ReturnItem{{ItemID: 7, Quantity: 1}}}, "")
	require.ErrorIs(t, err, ErrNotReturnable, "SALE invoice cannot take a purchase return")
}

func TestReturnUnknownItemReportedBeforeBadQuantity(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedSale(repo)

	// Item 8 is not on the invoice; that wins over the bad quantity.
	_, err := svc.ReturnSale(context.Background(), id, ReturnRequest{
		Items: []ReturnItem{{ItemID: 8, Quantity: -1}},
	}, "")
	require.ErrorIs(t, err, ErrItemNotOnInvoice)
}

func TestReturnRejectsNonPositiveQuantity(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedSale(repo)
	before := repo.snapshot()
	ctx := context.Background()

	_, err := svc.ReturnSale(ctx, id, ReturnRequest{
		Items: []ReturnItem{{ItemID: 7, Quantity: 0}},
	}, "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.ReturnSale(ctx, id, ReturnRequest{
		Items: []ReturnItem{{ItemID: 7, Quantity: -2}},
	}, "")
	require.ErrorIs(t, err, ErrValidation)

	require.Equal(t, before.stock, repo.stock)
	require.Equal(t, before.partyBalance, repo.partyBalance)
	require.Equal(t, before.lines[id], repo.lines[id])
}

func TestReturnOnInclusiveInvoiceKeepsTotalsConsistent(t *testing.T) {
	svc, repo := newReturnFixture(t)
	repo.stock[7] = 20

	inv, err := svc.Create(context.Background(), CreateInvoiceRequest{
		Type:    TypeSale,
		PartyID: ptr(int64(3)),
		TaxMode: "INCLUSIVE",
		Items:   []CreateLineItem{{ItemID: 7, Name: "Widget", Quantity: 10, Price: 100, TaxRate: 18}},
	})
	require.NoError(t, err)

	_, err = svc.ReturnSale(context.Background(), inv.ID, ReturnRequest{
		Items: []ReturnItem{{ItemID: 7, Quantity: 4}},
	}, "")
	require.NoError(t, err)

	original, lines, err := repo.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	sum := 0.0
	for _, line := range lines {
		sum += line.Total
	}
	require.InDelta(t, sum, original.TotalAmount, 0.01, "recomputed header tracks the shrunk lines")
	require.InDelta(t, 600.00, original.TotalAmount, 0.01, "six tenths of the inclusive 1000 remain")
}

func TestReturnAgainstClosedInvoice(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedSale(repo)
	inv := repo.invoices[id]
	inv.IsClosed = true
	repo.invoices[id] = inv

	_, err := svc.ReturnSale(context.Background(), id, ReturnRequest{
		Items: []ReturnItem{{ItemID: 7, Quantity: 1}},
	}, "")
	require.ErrorIs(t, err, ErrInvoiceClosed)
}

func TestReturnAgainstInvoiceWithoutLines(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedSale(repo)
	repo.lines[id] = nil

	_, err := svc.ReturnSale(context.Background(), id, ReturnRequest{
		Items: []ReturnItem{{ItemID: 7, Quantity: 1}},
	}, "")
	require.ErrorIs(t, err, ErrNoLines)
}

func TestReturnSchemaGuard(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedSale(repo)
	repo.hasReturnCols = false

	_, err := svc.ReturnSale(context.Background(), id, ReturnRequest{
		Items: []ReturnItem{{ItemID: 7, Quantity: 1}},
	}, "")
	require.ErrorIs(t, err, ErrSchemaUnsupported)
}

func seedPurchase(repo *memoryRepo) int64 {
	supplierID := int64(9)
	repo.nextID = 200
	repo.invoices[2] = Invoice{
		ID:          2,
		Type:        TypePurchase,
		Number:      "PUR-00000002",
		SupplierID:  &supplierID,
		TotalAmount: 590,
		TotalTax:    90,
		PaymentMode: "BANK",
		DueStatus:   DuePending,
	}
	repo.lines[2] = []Line{{
		ID: 60, InvoiceID: 2, ItemID: 4, ItemName: "Gasket",
		Quantity: 5, UnitPrice: 100, TaxRate: 18, Total: 590,
	}}
	repo.stock[4] = 5
	repo.supplierBal[supplierID] = -590
	return 2
}

func TestPurchaseReturnExcludesTax(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedPurchase(repo)

	result, err := svc.ReturnPurchase(context.Background(), id, ReturnRequest{
		Items: []ReturnItem{{ItemID: 4, Quantity: 2}},
	}, "")
	require.NoError(t, err)

	ret := repo.invoices[result.ReturnInvoiceID]
	require.Equal(t, TypePurchaseReturn, ret.Type)
	require.InDelta(t, 200.00, ret.TotalAmount, 0.001, "debit note carries subtotal only, tax excluded")
	require.InDelta(t, 0.00, ret.TotalTax, 0.001)

	require.InDelta(t, 3, repo.stock[4], 0.001, "goods leave stock on a purchase return")
	require.InDelta(t, -390.00, repo.supplierBal[9], 0.001, "supplier balance increases by the return amount")
	require.InDelta(t, 3, repo.lines[id][0].Quantity, 0.001)
	require.False(t, repo.invoices[id].IsClosed)
}

func TestReturnIdempotencyReplay(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedSale(repo)
	req := ReturnRequest{Items: []ReturnItem{{ItemID: 7, Quantity: 4}}}

	first, err := svc.ReturnSale(context.Background(), id, req, "key-1")
	require.NoError(t, err)

	second, err := svc.ReturnSale(context.Background(), id, req, "key-1")
	require.NoError(t, err)
	require.Equal(t, first, second, "duplicate key replays the original result")

	returns := 0
	for _, inv := range repo.invoices {
		if inv.Type == TypeReturn {
			returns++
		}
	}
	require.Equal(t, 1, returns, "the transaction must not run twice")
	require.InDelta(t, 6, repo.lines[id][0].Quantity, 0.001)
}

func TestReturnIdempotencyKeyFreedOnFailure(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedSale(repo)

	_, err := svc.ReturnSale(context.Background(), id, ReturnRequest{
		Items: []ReturnItem{{ItemID: 7, Quantity: 99}},
	}, "key-2")
	require.ErrorIs(t, err, ErrOverReturn)

	// A failed attempt releases the key so the corrected retry succeeds.
	_, err = svc.ReturnSale(context.Background(), id, ReturnRequest{
		Items: []ReturnItem{{ItemID: 7, Quantity: 1}},
	}, "key-2")
	require.NoError(t, err)
}

func TestRepeatedPartialReturnsKeepTotalsConsistent(t *testing.T) {
	svc, repo := newReturnFixture(t)
	id := seedSale(repo)

	for _, qty := range []float64{1, 2, 3} {
		_, err := svc.ReturnSale(context.Background(), id, ReturnRequest{
			Items: []ReturnItem{{ItemID: 7, Quantity: qty}},
		}, "")
		require.NoError(t, err)

		sum := 0.0
		for _, line := range repo.lines[id] {
			sum += line.Total
		}
		require.InDelta(t, sum, repo.invoices[id].TotalAmount, 0.001, "header never drifts from the line totals")
	}
	require.InDelta(t, 4, repo.lines[id][0].Quantity, 0.001)
}
