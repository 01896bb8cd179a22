package items

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quickbill/quickbill/internal/platform/httpx"
)

type memoryItemRepo struct {
	items      map[int64]Item
	references map[int64]int
	nextID     int64
}

func newMemoryItemRepo() *memoryItemRepo {
	return &memoryItemRepo{items: map[int64]Item{}, references: map[int64]int{}}
}

func (r *memoryItemRepo) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Item, int, error) {
	out := []Item{}
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, len(out), nil
}

func (r *memoryItemRepo) Get(ctx context.Context, id int64) (Item, error) {
	item, ok := r.items[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
	}
	return item, nil
}

func (r *memoryItemRepo) Create(ctx context.Context, req UpsertItemRequest) (Item, error) {
	if req.Barcode != nil {
		for _, existing := range r.items {
			if existing.Barcode != nil && *existing.Barcode == *req.Barcode {
				return Item{}, fmt.Errorf("%w: items_barcode_key", httpx.ErrDuplicate)
			}
		}
	}
	r.nextID++
	item := Item{ID: r.nextID, Name: req.Name, Code: req.Code, Barcode: req.Barcode,
		SellingPrice: req.SellingPrice, PurchasePrice: req.PurchasePrice, MRP: req.MRP,
		Stock: req.Stock, Unit: req.Unit, TaxRate: req.TaxRate}
	r.items[item.ID] = item
	return item, nil
}

func (r *memoryItemRepo) Update(ctx context.Context, id int64, req UpsertItemRequest) (Item, error) {
	item, ok := r.items[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
	}
	item.Name = req.Name
	item.Code = req.Code
	item.Stock = req.Stock
	r.items[id] = item
	return item, nil
}

func (r *memoryItemRepo) CountInvoiceReferences(ctx context.Context, id int64) (int, error) {
	return r.references[id], nil
}

func (r *memoryItemRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
	}
	delete(r.items, id)
	return nil
}

func (r *memoryItemRepo) AdjustStock(ctx context.Context, id int64, delta float64) (float64, error) {
	item, ok := r.items[id]
	if !ok {
		return 0, fmt.Errorf("%w: item %d", httpx.ErrNotFound, id)
	}
	item.Stock += delta
	r.items[id] = item
	return item.Stock, nil
}

func TestDeleteBlockedWhenReferenced(t *testing.T) {
	repo := newMemoryItemRepo()
	svc := NewService(repo, nil)

	item, err := svc.Create(context.Background(), UpsertItemRequest{Name: "Widget", Code: "W1"})
	require.NoError(t, err)
	repo.references[item.ID] = 3

	err = svc.Delete(context.Background(), item.ID)
	require.ErrorIs(t, err, httpx.ErrReferenced)
	require.Contains(t, err.Error(), "cannot delete")
	require.Contains(t, err.Error(), "3")

	_, getErr := svc.Get(context.Background(), item.ID)
	require.NoError(t, getErr, "item row stays intact")
}

func TestDeleteUnreferencedItem(t *testing.T) {
	repo := newMemoryItemRepo()
	svc := NewService(repo, nil)

	item, err := svc.Create(context.Background(), UpsertItemRequest{Name: "Widget", Code: "W1"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), item.ID))
	_, err = svc.Get(context.Background(), item.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreateRejectsDuplicateBarcode(t *testing.T) {
	repo := newMemoryItemRepo()
	svc := NewService(repo, nil)
	barcode := "8901234567890"

	_, err := svc.Create(context.Background(), UpsertItemRequest{Name: "A", Code: "A1", Barcode: &barcode})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), UpsertItemRequest{Name: "B", Code: "B1", Barcode: &barcode})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestAdjustStockMayGoNegative(t *testing.T) {
	repo := newMemoryItemRepo()
	svc := NewService(repo, nil)

	item, err := svc.Create(context.Background(), UpsertItemRequest{Name: "Widget", Code: "W1", Stock: 2})
	require.NoError(t, err)

	stock, err := svc.AdjustStock(context.Background(), item.ID, AdjustStockRequest{Delta: -5, Note: "shrinkage"})
	require.NoError(t, err)
	require.InDelta(t, -3, stock, 0.001)
}

func TestValidationErrors(t *testing.T) {
	svc := NewService(newMemoryItemRepo(), nil)

	_, err := svc.Create(context.Background(), UpsertItemRequest{Code: "X"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, httpx.ErrValidation)
}
