package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/quickbill/quickbill/internal/billing/calc"
	"github.com/quickbill/quickbill/internal/shared"
)

// AuditPort records CRUD mutations, reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards mutating requests against duplicate submission.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// ResultCachePort replays the first response of an idempotent request.
type ResultCachePort interface {
	Store(ctx context.Context, module, key string, payload []byte) error
	Load(ctx context.Context, module, key string) ([]byte, bool, error)
}

// Service orchestrates invoice creation, update and the return transactions.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	audit    AuditPort
	idem     IdempotencyPort
	cache    ResultCachePort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the invoice service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, cache ResultCachePort, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		audit:    audit,
		idem:     idem,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// totalTolerance is the allowed disagreement between client-submitted and
// server-computed totals: one cent per line plus the round-off window.
func totalTolerance(lineCount int) float64 {
	return 0.01*float64(lineCount) + 0.5
}

func generateNumber(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%08d", prefix, now.UnixMilli()%100_000_000)
}

func numberPrefix(t InvoiceType) string {
	switch t {
	case TypeSale:
		return "INV"
	case TypeReturn:
		return "RET"
	case TypePurchase:
		return "PUR"
	case TypePurchaseReturn:
		return "PRN"
	}
	return "DOC"
}

func toCalcLines(items []CreateLineItem) []calc.Line {
	lines := make([]calc.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, calc.Line{
			Price:    decimal.NewFromFloat(item.Price),
			Quantity: decimal.NewFromFloat(item.Quantity),
			TaxRate:  decimal.NewFromFloat(item.TaxRate),
			MRP:      decimal.NewFromFloat(item.MRP),
		})
	}
	return lines
}

func (s *Service) checkRequest(req CreateInvoiceRequest) (calc.Totals, calc.TaxMode, error) {
	if err := s.validate.Struct(req); err != nil {
		return calc.Totals{}, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !req.Type.Valid() {
		return calc.Totals{}, "", fmt.Errorf("%w: unknown type %q", ErrValidation, req.Type)
	}
	switch req.Type {
	case TypeSale, TypeReturn:
		if req.PartyID == nil {
			return calc.Totals{}, "", fmt.Errorf("%w: party required for %s", ErrValidation, req.Type)
		}
	case TypePurchase, TypePurchaseReturn:
		if req.SupplierID == nil {
			return calc.Totals{}, "", fmt.Errorf("%w: supplier required for %s", ErrValidation, req.Type)
		}
	}

	mode := calc.TaxMode(req.TaxMode)
	if mode == "" {
		mode = calc.TaxExclusive
	}
	split := calc.GSTSplit(req.GSTSplit)
	if split == "" {
		split = calc.SplitCGSTSGST
	}
	totals := calc.ComputeTotals(toCalcLines(req.Items), mode, split)

	// Client totals are a display hint. The stored figures always come from
	// the server-side computation; a submitted total outside tolerance is an
	// error, a zero one means the client did not compute them.
	if req.TotalAmount > 0 {
		submitted := decimal.NewFromFloat(req.TotalAmount)
		diff := submitted.Sub(totals.Payable).Abs()
		if diff.GreaterThan(decimal.NewFromFloat(totalTolerance(len(req.Items)))) {
			return calc.Totals{}, "", fmt.Errorf("%w: submitted %s, computed %s", ErrTotalsMismatch, submitted, totals.Payable)
		}
	}
	return totals, mode, nil
}

func (s *Service) buildInvoice(req CreateInvoiceRequest, totals calc.Totals) Invoice {
	payable := totals.Payable.InexactFloat64()
	amountDue := payable - req.AmountPaid
	if amountDue < 0.005 {
		amountDue = 0
	}
	status := DuePending
	if amountDue == 0 {
		status = DuePaid
	}
	paymentMode := req.PaymentMode
	if paymentMode == "" {
		paymentMode = "CASH"
	}
	date := req.Date
	if date.IsZero() {
		date = s.now()
	}
	return Invoice{
		Type:        req.Type,
		Number:      generateNumber(numberPrefix(req.Type), s.now()),
		Date:        date,
		PartyID:     req.PartyID,
		SupplierID:  req.SupplierID,
		TotalAmount: payable,
		TotalTax:    totals.Tax.InexactFloat64(),
		RoundOff:    totals.RoundOff.InexactFloat64(),
		AmountPaid:  req.AmountPaid,
		AmountDue:   amountDue,
		DueStatus:   status,
		PaymentMode: paymentMode,
		Notes:       req.Notes,
	}
}

// lineTotal computes one stored line total under the invoice's tax mode so
// the header always equals the sum of its lines. Inclusive lines store the
// gross amount keyed in, exclusive lines store net plus tax.
func lineTotal(price, quantity, taxRate float64, mode calc.TaxMode) float64 {
	amounts := calc.ComputeLine(calc.Line{
		Price:    decimal.NewFromFloat(price),
		Quantity: decimal.NewFromFloat(quantity),
		TaxRate:  decimal.NewFromFloat(taxRate),
	}, mode)
	return calc.Round2(amounts.Total).InexactFloat64()
}

// Create persists a new invoice with its lines, stock movement and balance
// effect in one transaction.
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error) {
	totals, mode, err := s.checkRequest(req)
	if err != nil {
		return Invoice{}, err
	}

	inv := s.buildInvoice(req, totals)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		for _, item := range req.Items {
			line := Line{
				InvoiceID: id,
				ItemID:    item.ItemID,
				ItemName:  item.Name,
				Quantity:  item.Quantity,
				UnitPrice: item.Price,
				TaxRate:   item.TaxRate,
				Total:     lineTotal(item.Price, item.Quantity, item.TaxRate, mode),
			}
			lineID, err := tx.InsertLine(ctx, line)
			if err != nil {
				return err
			}
			line.ID = lineID
			inv.Lines = append(inv.Lines, line)

			if err := tx.AdjustItemStock(ctx, item.ItemID, req.Type.StockDelta()*item.Quantity); err != nil {
				return err
			}
		}
		return s.applyBalance(ctx, tx, inv, req.Type.BalanceDelta()*inv.TotalAmount)
	})
	if err != nil {
		return Invoice{}, err
	}

	s.recordAudit(ctx, "INVOICE_CREATE", inv.ID, map[string]any{"number": inv.Number, "type": string(inv.Type), "total": inv.TotalAmount})
	return inv, nil
}

// Update replaces an invoice's header and lines in place, reversing the old
// stock/balance effects and applying the new ones atomically. The invoice
// type is immutable, and an invoice with linked returns cannot be edited:
// its remaining quantities are what the returns were validated against.
func (s *Service) Update(ctx context.Context, id int64, req CreateInvoiceRequest) (Invoice, error) {
	if id <= 0 {
		return Invoice{}, fmt.Errorf("%w: invoice id must be positive", ErrValidation)
	}
	totals, mode, err := s.checkRequest(req)
	if err != nil {
		return Invoice{}, err
	}
	count, err := s.repo.CountReturnsAgainst(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if count > 0 {
		return Invoice{}, fmt.Errorf("%w: %d return(s) reference this invoice", ErrHasReturns, count)
	}

	var updated Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if existing.Type != req.Type {
			return ErrTypeImmutable
		}
		if existing.IsClosed {
			return ErrInvoiceClosed
		}
		oldLines, err := tx.GetLinesForUpdate(ctx, id)
		if err != nil {
			return err
		}

		for _, line := range oldLines {
			if err := tx.AdjustItemStock(ctx, line.ItemID, -existing.Type.StockDelta()*line.Quantity); err != nil {
				return err
			}
		}
		if err := s.applyBalance(ctx, tx, existing, -existing.Type.BalanceDelta()*existing.TotalAmount); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}

		updated = s.buildInvoice(req, totals)
		updated.ID = id
		updated.Number = existing.Number
		updated.Type = existing.Type
		if err := tx.UpdateInvoiceHeader(ctx, updated); err != nil {
			return err
		}
		for _, item := range req.Items {
			line := Line{
				InvoiceID: id,
				ItemID:    item.ItemID,
				ItemName:  item.Name,
				Quantity:  item.Quantity,
				UnitPrice: item.Price,
				TaxRate:   item.TaxRate,
				Total:     lineTotal(item.Price, item.Quantity, item.TaxRate, mode),
			}
			lineID, err := tx.InsertLine(ctx, line)
			if err != nil {
				return err
			}
			line.ID = lineID
			updated.Lines = append(updated.Lines, line)

			if err := tx.AdjustItemStock(ctx, item.ItemID, req.Type.StockDelta()*item.Quantity); err != nil {
				return err
			}
		}
		return s.applyBalance(ctx, tx, updated, req.Type.BalanceDelta()*updated.TotalAmount)
	})
	if err != nil {
		return Invoice{}, err
	}

	s.recordAudit(ctx, "INVOICE_UPDATE", id, map[string]any{"number": updated.Number, "total": updated.TotalAmount})
	return updated, nil
}

// Get loads a single invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, lines, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.Lines = lines
	return inv, nil
}

// List returns a filtered page of invoices.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Invoice, int, error) {
	limit = shared.ClampLimit(limit, 20, 200)
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListInvoices(ctx, limit, offset, filters)
}

// Delete removes an invoice after reversing its stock and balance effects.
// Invoices with linked returns are kept; the return flow closes invoices
// instead of deleting them.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invoice id must be positive", ErrValidation)
	}
	count, err := s.repo.CountReturnsAgainst(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d return(s) reference this invoice", ErrHasReturns, count)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		lines, err := tx.GetLinesForUpdate(ctx, id)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if err := tx.AdjustItemStock(ctx, line.ItemID, -existing.Type.StockDelta()*line.Quantity); err != nil {
				return err
			}
		}
		if err := s.applyBalance(ctx, tx, existing, -existing.Type.BalanceDelta()*existing.TotalAmount); err != nil {
			return err
		}
		return tx.DeleteInvoice(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "INVOICE_DELETE", id, nil)
	return nil
}

func (s *Service) applyBalance(ctx context.Context, tx TxRepository, inv Invoice, delta float64) error {
	if math.Abs(delta) < 0.005 {
		return nil
	}
	switch {
	case inv.PartyID != nil:
		return tx.AdjustPartyBalance(ctx, *inv.PartyID, delta)
	case inv.SupplierID != nil:
		return tx.AdjustSupplierBalance(ctx, *inv.SupplierID, delta)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{Action: action, Entity: "invoice", EntityID: strconv.FormatInt(id, 10), Meta: meta}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
