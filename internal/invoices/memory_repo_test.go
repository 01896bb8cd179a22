package invoices

import (
	"context"
	"fmt"

	"github.com/quickbill/quickbill/internal/shared"
)

// memoryRepo is an in-memory RepositoryPort with real transaction semantics:
// WithTx snapshots the state and restores it when the callback fails, so
// rollback behaviour is observable in tests.
type memoryRepo struct {
	invoices      map[int64]Invoice
	lines         map[int64][]Line
	stock         map[int64]float64
	partyBalance  map[int64]float64
	supplierBal   map[int64]float64
	audits        []ReturnAudit
	hasReturnCols bool
	nextID        int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		invoices:      map[int64]Invoice{},
		lines:         map[int64][]Line{},
		stock:         map[int64]float64{},
		partyBalance:  map[int64]float64{},
		supplierBal:   map[int64]float64{},
		hasReturnCols: true,
	}
}

func (r *memoryRepo) snapshot() *memoryRepo {
	clone := newMemoryRepo()
	clone.hasReturnCols = r.hasReturnCols
	clone.nextID = r.nextID
	for id, inv := range r.invoices {
		clone.invoices[id] = inv
	}
	for id, lines := range r.lines {
		clone.lines[id] = append([]Line(nil), lines...)
	}
	for id, qty := range r.stock {
		clone.stock[id] = qty
	}
	for id, bal := range r.partyBalance {
		clone.partyBalance[id] = bal
	}
	for id, bal := range r.supplierBal {
		clone.supplierBal[id] = bal
	}
	clone.audits = append([]ReturnAudit(nil), r.audits...)
	return clone
}

func (r *memoryRepo) restore(snap *memoryRepo) {
	r.invoices = snap.invoices
	r.lines = snap.lines
	r.stock = snap.stock
	r.partyBalance = snap.partyBalance
	r.supplierBal = snap.supplierBal
	r.audits = snap.audits
	r.nextID = snap.nextID
}

type memoryTx struct {
	repo *memoryRepo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *memoryRepo) GetInvoice(ctx context.Context, id int64) (Invoice, []Line, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, nil, ErrNotFound
	}
	return inv, append([]Line(nil), r.lines[id]...), nil
}

func (r *memoryRepo) ListInvoices(ctx context.Context, limit, offset int, filters ListFilters) ([]Invoice, int, error) {
	out := []Invoice{}
	for _, inv := range r.invoices {
		if filters.Type != "" && inv.Type != filters.Type {
			continue
		}
		out = append(out, inv)
	}
	return out, len(out), nil
}

func (r *memoryRepo) HasReturnColumns(ctx context.Context) (bool, error) {
	return r.hasReturnCols, nil
}

func (r *memoryRepo) CountReturnsAgainst(ctx context.Context, id int64) (int, error) {
	count := 0
	for _, inv := range r.invoices {
		if inv.OriginalInvoiceID != nil && *inv.OriginalInvoiceID == id {
			count++
		}
	}
	return count, nil
}

func (tx *memoryTx) allocID() int64 {
	tx.repo.nextID++
	return tx.repo.nextID
}

func (tx *memoryTx) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	id := tx.allocID()
	inv.ID = id
	tx.repo.invoices[id] = inv
	return id, nil
}

func (tx *memoryTx) InsertLine(ctx context.Context, line Line) (int64, error) {
	line.ID = tx.allocID()
	tx.repo.lines[line.InvoiceID] = append(tx.repo.lines[line.InvoiceID], line)
	return line.ID, nil
}

func (tx *memoryTx) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := tx.repo.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (tx *memoryTx) GetLinesForUpdate(ctx context.Context, invoiceID int64) ([]Line, error) {
	return append([]Line(nil), tx.repo.lines[invoiceID]...), nil
}

func (tx *memoryTx) UpdateLineQuantity(ctx context.Context, lineID int64, quantity, total float64) error {
	for invoiceID, lines := range tx.repo.lines {
		for i := range lines {
			if lines[i].ID == lineID {
				lines[i].Quantity = quantity
				lines[i].Total = total
				tx.repo.lines[invoiceID] = lines
				return nil
			}
		}
	}
	return fmt.Errorf("line %d not found", lineID)
}

func (tx *memoryTx) DeleteLines(ctx context.Context, invoiceID int64) error {
	delete(tx.repo.lines, invoiceID)
	return nil
}

func (tx *memoryTx) UpdateInvoiceHeader(ctx context.Context, inv Invoice) error {
	existing, ok := tx.repo.invoices[inv.ID]
	if !ok {
		return ErrNotFound
	}
	inv.Type = existing.Type
	inv.Number = existing.Number
	tx.repo.invoices[inv.ID] = inv
	return nil
}

func (tx *memoryTx) RecomputeInvoiceTotal(ctx context.Context, invoiceID int64) (float64, error) {
	inv, ok := tx.repo.invoices[invoiceID]
	if !ok {
		return 0, ErrNotFound
	}
	total := 0.0
	for _, line := range tx.repo.lines[invoiceID] {
		total += line.Total
	}
	inv.TotalAmount = total
	tx.repo.invoices[invoiceID] = inv
	return total, nil
}

func (tx *memoryTx) CloseInvoice(ctx context.Context, id int64) error {
	inv, ok := tx.repo.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.IsClosed = true
	tx.repo.invoices[id] = inv
	return nil
}

func (tx *memoryTx) DeleteInvoice(ctx context.Context, id int64) error {
	if _, ok := tx.repo.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(tx.repo.invoices, id)
	delete(tx.repo.lines, id)
	return nil
}

func (tx *memoryTx) AdjustItemStock(ctx context.Context, itemID int64, delta float64) error {
	tx.repo.stock[itemID] += delta
	return nil
}

func (tx *memoryTx) AdjustPartyBalance(ctx context.Context, partyID int64, delta float64) error {
	tx.repo.partyBalance[partyID] += delta
	return nil
}

func (tx *memoryTx) AdjustSupplierBalance(ctx context.Context, supplierID int64, delta float64) error {
	tx.repo.supplierBal[supplierID] += delta
	return nil
}

func (tx *memoryTx) InsertReturnAudit(ctx context.Context, audit ReturnAudit) error {
	audit.ID = tx.allocID()
	tx.repo.audits = append(tx.repo.audits, audit)
	return nil
}

// memoryIdempotency fakes the durable key table.
type memoryIdempotency struct {
	keys map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: map[string]bool{}}
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

// memoryCache fakes the result cache.
type memoryCache struct {
	payloads map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{payloads: map[string][]byte{}}
}

func (m *memoryCache) Store(ctx context.Context, module, key string, payload []byte) error {
	m.payloads[module+":"+key] = payload
	return nil
}

func (m *memoryCache) Load(ctx context.Context, module, key string) ([]byte, bool, error) {
	payload, ok := m.payloads[module+":"+key]
	return payload, ok, nil
}
