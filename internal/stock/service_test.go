package stock

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quickbill/quickbill/internal/platform/httpx"
)

type catalogRow struct {
	id           int64
	barcode      *string
	sellingPrice float64
	taxRate      float64
	stock        float64
}

type memoryStockRepo struct {
	staged     map[int64]StagedItem
	catalog    map[int64]catalogRow
	nextStock  int64
	nextItemID int64
}

func newMemoryStockRepo() *memoryStockRepo {
	return &memoryStockRepo{staged: map[int64]StagedItem{}, catalog: map[int64]catalogRow{}}
}

func (r *memoryStockRepo) List(ctx context.Context, limit, offset int, filters ListFilters) ([]StagedItem, int, error) {
	out := []StagedItem{}
	for _, s := range r.staged {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (r *memoryStockRepo) Get(ctx context.Context, id int64) (StagedItem, error) {
	s, ok := r.staged[id]
	if !ok {
		return StagedItem{}, fmt.Errorf("%w: stock row %d", httpx.ErrNotFound, id)
	}
	return s, nil
}

func (r *memoryStockRepo) Create(ctx context.Context, req UpsertStagedItemRequest) (StagedItem, error) {
	r.nextStock++
	s := StagedItem{ID: r.nextStock, Name: req.Name, Code: req.Code, Barcode: req.Barcode,
		PurchasePrice: req.PurchasePrice, MRP: req.MRP, Quantity: req.Quantity, Unit: req.Unit}
	r.staged[s.ID] = s
	return s, nil
}

func (r *memoryStockRepo) Update(ctx context.Context, id int64, req UpsertStagedItemRequest) (StagedItem, error) {
	s, ok := r.staged[id]
	if !ok {
		return StagedItem{}, fmt.Errorf("%w: stock row %d", httpx.ErrNotFound, id)
	}
	s.Name, s.Code, s.Quantity = req.Name, req.Code, req.Quantity
	r.staged[id] = s
	return s, nil
}

func (r *memoryStockRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.staged[id]; !ok {
		return fmt.Errorf("%w: stock row %d", httpx.ErrNotFound, id)
	}
	delete(r.staged, id)
	return nil
}

func (r *memoryStockRepo) Move(ctx context.Context, id int64, req MoveRequest) (int64, error) {
	s, ok := r.staged[id]
	if !ok {
		return 0, fmt.Errorf("%w: stock row %d", httpx.ErrNotFound, id)
	}
	if s.Barcode != nil {
		for _, row := range r.catalog {
			if row.barcode != nil && *row.barcode == *s.Barcode {
				// Collision aborts before any state change, matching the
				// rolled-back transaction.
				return 0, fmt.Errorf("%w: items_barcode_key", httpx.ErrDuplicate)
			}
		}
	}
	r.nextItemID++
	r.catalog[r.nextItemID] = catalogRow{id: r.nextItemID, barcode: s.Barcode,
		sellingPrice: req.SellingPrice, taxRate: req.TaxRate, stock: s.Quantity}
	delete(r.staged, id)
	return r.nextItemID, nil
}

func TestMovePromotesStagedRow(t *testing.T) {
	repo := newMemoryStockRepo()
	svc := NewService(repo, nil)

	staged, err := svc.Create(context.Background(), UpsertStagedItemRequest{
		Name: "Widget", Code: "W1", Quantity: 12, PurchasePrice: 80, MRP: 120,
	})
	require.NoError(t, err)

	itemID, err := svc.Move(context.Background(), staged.ID, MoveRequest{SellingPrice: 100, TaxRate: 18})
	require.NoError(t, err)
	require.NotZero(t, itemID)

	_, err = svc.Get(context.Background(), staged.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound, "staged row is gone after the move")

	row := repo.catalog[itemID]
	require.InDelta(t, 100, row.sellingPrice, 0.001)
	require.InDelta(t, 12, row.stock, 0.001, "catalog stock starts at the staged quantity")
}

func TestMoveBarcodeCollisionLeavesStagingIntact(t *testing.T) {
	repo := newMemoryStockRepo()
	svc := NewService(repo, nil)
	barcode := "8901234567890"
	repo.nextItemID++
	repo.catalog[repo.nextItemID] = catalogRow{id: repo.nextItemID, barcode: &barcode}

	staged, err := svc.Create(context.Background(), UpsertStagedItemRequest{
		Name: "Widget", Code: "W1", Barcode: &barcode, Quantity: 5,
	})
	require.NoError(t, err)

	_, err = svc.Move(context.Background(), staged.ID, MoveRequest{SellingPrice: 100})
	require.ErrorIs(t, err, httpx.ErrDuplicate)

	got, getErr := svc.Get(context.Background(), staged.ID)
	require.NoError(t, getErr, "staged row survives the failed move")
	require.InDelta(t, 5, got.Quantity, 0.001)
	require.Len(t, repo.catalog, 1, "no new catalog row appeared")
}

func TestMoveValidation(t *testing.T) {
	svc := NewService(newMemoryStockRepo(), nil)

	_, err := svc.Move(context.Background(), 1, MoveRequest{SellingPrice: 0})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Move(context.Background(), 0, MoveRequest{SellingPrice: 10})
	require.ErrorIs(t, err, httpx.ErrValidation)
}
