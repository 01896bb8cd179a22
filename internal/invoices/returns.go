package invoices

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/quickbill/quickbill/internal/billing/calc"
)

// returnPolicy captures how the two return flavours differ. A sale return
// restocks goods and credits the customer for subtotal plus tax; a purchase
// return ships goods back and debits the supplier for the subtotal only.
type returnPolicy struct {
	baseType    InvoiceType
	returnType  InvoiceType
	prefix      string
	defaultNote string
	includeTax  bool
}

var (
	saleReturnPolicy = returnPolicy{
		baseType:    TypeSale,
		returnType:  TypeReturn,
		prefix:      "RET",
		defaultNote: "Sale Return",
		includeTax:  true,
	}
	purchaseReturnPolicy = returnPolicy{
		baseType:    TypePurchase,
		returnType:  TypePurchaseReturn,
		prefix:      "PRN",
		defaultNote: "Purchase Return",
		includeTax:  false,
	}
)

// ReturnSale processes a credit note against a SALE invoice: it creates a
// RETURN invoice, shrinks the original lines, restocks the items, reduces
// the customer balance and closes the original once fully returned. All of
// it happens in one transaction with the touched rows locked.
func (s *Service) ReturnSale(ctx context.Context, originalID int64, req ReturnRequest, idemKey string) (ReturnResult, error) {
	return s.processReturn(ctx, originalID, req, saleReturnPolicy, idemKey)
}

// ReturnPurchase processes a debit note against a PURCHASE invoice. Stock is
// decremented (goods leave) and the supplier balance increases by the return
// amount, which excludes tax.
func (s *Service) ReturnPurchase(ctx context.Context, originalID int64, req ReturnRequest, idemKey string) (ReturnResult, error) {
	return s.processReturn(ctx, originalID, req, purchaseReturnPolicy, idemKey)
}

const idempotencyModule = "returns"

func (s *Service) processReturn(ctx context.Context, originalID int64, req ReturnRequest, policy returnPolicy, idemKey string) (ReturnResult, error) {
	if originalID <= 0 {
		return ReturnResult{}, fmt.Errorf("%w: original invoice id must be positive", ErrValidation)
	}
	if err := s.validate.Struct(req); err != nil {
		return ReturnResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	ok, err := s.repo.HasReturnColumns(ctx)
	if err != nil {
		return ReturnResult{}, err
	}
	if !ok {
		return ReturnResult{}, ErrSchemaUnsupported
	}

	if idemKey != "" && s.idem != nil {
		if cached, hit := s.loadCachedResult(ctx, idemKey); hit {
			return cached, nil
		}
		if err := s.idem.CheckAndInsert(ctx, idemKey, idempotencyModule); err != nil {
			// A processed key whose cached response expired cannot be
			// replayed; the caller must inspect the created return.
			return ReturnResult{}, err
		}
	}

	result, err := s.runReturnTx(ctx, originalID, req, policy)
	if err != nil {
		if idemKey != "" && s.idem != nil {
			_ = s.idem.Delete(ctx, idemKey)
		}
		return ReturnResult{}, err
	}

	if idemKey != "" {
		s.storeCachedResult(ctx, idemKey, result)
	}
	s.recordAudit(ctx, "RETURN_CREATE", result.ReturnInvoiceID, map[string]any{
		"original_invoice_id": originalID,
		"type":                string(policy.returnType),
		"processed_by":        req.ProcessedBy,
	})
	return result, nil
}

// mergeReturnItems folds duplicate item ids so the remaining-quantity check
// sees the combined requested quantity.
func mergeReturnItems(items []ReturnItem) ([]int64, map[int64]float64) {
	order := make([]int64, 0, len(items))
	merged := make(map[int64]float64, len(items))
	for _, item := range items {
		if _, seen := merged[item.ItemID]; !seen {
			order = append(order, item.ItemID)
		}
		merged[item.ItemID] += item.Quantity
	}
	return order, merged
}

func (s *Service) runReturnTx(ctx context.Context, originalID int64, req ReturnRequest, policy returnPolicy) (ReturnResult, error) {
	itemOrder, requested := mergeReturnItems(req.Items)

	var result ReturnResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetInvoiceForUpdate(ctx, originalID)
		if err != nil {
			return err
		}
		if original.Type != policy.baseType {
			return fmt.Errorf("%w: invoice %d is %s, expected %s", ErrNotReturnable, originalID, original.Type, policy.baseType)
		}
		if original.IsClosed {
			return fmt.Errorf("%w: invoice %d", ErrInvoiceClosed, originalID)
		}

		lines, err := tx.GetLinesForUpdate(ctx, originalID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("%w: invoice %d", ErrNoLines, originalID)
		}

		byItem := make(map[int64]*Line, len(lines))
		totalRemaining := decimal.Zero
		for i := range lines {
			byItem[lines[i].ItemID] = &lines[i]
			totalRemaining = totalRemaining.Add(decimal.NewFromFloat(lines[i].Quantity))
		}
		for _, itemID := range itemOrder {
			if _, ok := byItem[itemID]; !ok {
				return fmt.Errorf("%w: item %d", ErrItemNotOnInvoice, itemID)
			}
		}
		for _, item := range req.Items {
			if item.Quantity <= 0 {
				return fmt.Errorf("%w: quantity for item %d must be positive", ErrValidation, item.ItemID)
			}
		}
		for _, itemID := range itemOrder {
			line := byItem[itemID]
			if requested[itemID] > line.Quantity+1e-9 {
				return fmt.Errorf("%w: item %d has %s remaining, requested %s",
					ErrOverReturn, itemID, strconv.FormatFloat(line.Quantity, 'f', -1, 64), strconv.FormatFloat(requested[itemID], 'f', -1, 64))
			}
		}
		if !totalRemaining.IsPositive() {
			return fmt.Errorf("%w: invoice %d", ErrFullyReturned, originalID)
		}

		// Return math is exclusive-style net-of-tax: sub = price*qty,
		// tax = sub*rate/100, accumulated before any rounding.
		returnSubtotal := decimal.Zero
		returnTax := decimal.Zero
		type returnLine struct {
			itemID   int64
			name     string
			quantity float64
			price    float64
			taxRate  float64
			total    decimal.Decimal
		}
		returnLines := make([]returnLine, 0, len(itemOrder))
		for _, itemID := range itemOrder {
			line := byItem[itemID]
			qty := decimal.NewFromFloat(requested[itemID])
			sub := decimal.NewFromFloat(line.UnitPrice).Mul(qty)
			tax := sub.Mul(decimal.NewFromFloat(line.TaxRate)).Div(decimal.NewFromInt(100))
			returnSubtotal = returnSubtotal.Add(sub)
			returnTax = returnTax.Add(tax)

			lineAmount := sub
			if policy.includeTax {
				lineAmount = sub.Add(tax)
			}
			returnLines = append(returnLines, returnLine{
				itemID:   itemID,
				name:     line.ItemName,
				quantity: requested[itemID],
				price:    line.UnitPrice,
				taxRate:  line.TaxRate,
				total:    calc.Round2(lineAmount),
			})
		}
		grand := returnSubtotal
		taxStored := decimal.Zero
		if policy.includeTax {
			grand = grand.Add(returnTax)
			taxStored = calc.Round2(returnTax)
		}
		grand = calc.Round2(grand)

		notes := policy.defaultNote
		if req.Reason != "" {
			notes = "Return: " + req.Reason
		}
		paymentMode := original.PaymentMode
		if paymentMode == "" {
			paymentMode = "CASH"
		}
		grandF := grand.InexactFloat64()
		returnInvoice := Invoice{
			Type:              policy.returnType,
			Number:            generateNumber(policy.prefix, s.now()),
			Date:              s.now(),
			PartyID:           original.PartyID,
			SupplierID:        original.SupplierID,
			TotalAmount:       grandF,
			TotalTax:          taxStored.InexactFloat64(),
			DueStatus:         DuePaid,
			PaymentMode:       paymentMode,
			Notes:             &notes,
			OriginalInvoiceID: &originalID,
		}
		returnID, err := tx.InsertInvoice(ctx, returnInvoice)
		if err != nil {
			return err
		}

		remaining := totalRemaining
		for _, rl := range returnLines {
			if _, err := tx.InsertLine(ctx, Line{
				InvoiceID: returnID,
				ItemID:    rl.itemID,
				ItemName:  rl.name,
				Quantity:  rl.quantity,
				UnitPrice: rl.price,
				TaxRate:   rl.taxRate,
				Total:     rl.total.InexactFloat64(),
			}); err != nil {
				return err
			}

			// Shrink the line's total proportionally from the stored figure
			// so the amount stays consistent with whatever tax mode the
			// invoice was created under.
			line := byItem[rl.itemID]
			oldQty := decimal.NewFromFloat(line.Quantity)
			newQty := oldQty.Sub(decimal.NewFromFloat(rl.quantity))
			newTotal := decimal.Zero
			if newQty.IsPositive() {
				newTotal = calc.Round2(decimal.NewFromFloat(line.Total).Div(oldQty).Mul(newQty))
			}
			if err := tx.UpdateLineQuantity(ctx, line.ID, newQty.InexactFloat64(), newTotal.InexactFloat64()); err != nil {
				return err
			}
			remaining = remaining.Sub(decimal.NewFromFloat(rl.quantity))

			if err := tx.AdjustItemStock(ctx, rl.itemID, policy.returnType.StockDelta()*rl.quantity); err != nil {
				return err
			}
			if err := tx.InsertReturnAudit(ctx, ReturnAudit{
				OriginalInvoiceID: originalID,
				ReturnInvoiceID:   returnID,
				ItemID:            rl.itemID,
				Quantity:          rl.quantity,
				Reason:            req.Reason,
				ProcessedBy:       req.ProcessedBy,
			}); err != nil {
				return err
			}
		}

		// The original header's total is derived from the live line totals,
		// never by subtracting the return amount.
		if _, err := tx.RecomputeInvoiceTotal(ctx, originalID); err != nil {
			return err
		}

		delta := policy.returnType.BalanceDelta() * grandF
		if err := s.applyBalance(ctx, tx, original, delta); err != nil {
			return err
		}

		if !remaining.IsPositive() {
			if err := tx.CloseInvoice(ctx, originalID); err != nil {
				return err
			}
		}

		result = ReturnResult{
			ReturnInvoiceID: returnID,
			Message:         fmt.Sprintf("%s processed for invoice %s", policy.defaultNote, original.Number),
		}
		return nil
	})
	return result, err
}

func (s *Service) loadCachedResult(ctx context.Context, key string) (ReturnResult, bool) {
	if s.cache == nil {
		return ReturnResult{}, false
	}
	payload, hit, err := s.cache.Load(ctx, idempotencyModule, key)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("idempotency cache load failed", slog.Any("error", err))
		}
		return ReturnResult{}, false
	}
	if !hit {
		return ReturnResult{}, false
	}
	var result ReturnResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return ReturnResult{}, false
	}
	return result, true
}

func (s *Service) storeCachedResult(ctx context.Context, key string, result ReturnResult) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Store(ctx, idempotencyModule, key, payload); err != nil && s.logger != nil {
		s.logger.Warn("idempotency cache store failed", slog.Any("error", err))
	}
}
