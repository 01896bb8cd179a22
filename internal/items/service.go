package items

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/quickbill/quickbill/internal/platform/httpx"
	"github.com/quickbill/quickbill/internal/shared"
)

// RepositoryPort describes the persistence surface used by Service.
type RepositoryPort interface {
	List(ctx context.Context, limit, offset int, filters ListFilters) ([]Item, int, error)
	Get(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, req UpsertItemRequest) (Item, error)
	Update(ctx context.Context, id int64, req UpsertItemRequest) (Item, error)
	CountInvoiceReferences(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
	AdjustStock(ctx context.Context, id int64, delta float64) (float64, error)
}

// AuditPort records catalog mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles catalog business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	audit    AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, validate: validator.New(), audit: audit}
}

// List returns a page of items.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Item, int, error) {
	limit = shared.ClampLimit(limit, 20, 200)
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset, filters)
}

// Get loads one item.
func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	if id <= 0 {
		return Item{}, fmt.Errorf("%w: invalid item id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a new catalog item.
func (s *Service) Create(ctx context.Context, req UpsertItemRequest) (Item, error) {
	if err := s.validate.Struct(req); err != nil {
		return Item{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	item, err := s.repo.Create(ctx, req)
	if err != nil {
		return Item{}, err
	}
	s.recordAudit(ctx, "ITEM_CREATE", item.ID, map[string]any{"code": item.Code})
	return item, nil
}

// Update replaces an item.
func (s *Service) Update(ctx context.Context, id int64, req UpsertItemRequest) (Item, error) {
	if id <= 0 {
		return Item{}, fmt.Errorf("%w: invalid item id", httpx.ErrValidation)
	}
	if err := s.validate.Struct(req); err != nil {
		return Item{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	item, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return Item{}, err
	}
	s.recordAudit(ctx, "ITEM_UPDATE", id, nil)
	return item, nil
}

// Delete removes an item unless any invoice line references it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid item id", httpx.ErrValidation)
	}
	count, err := s.repo.CountInvoiceReferences(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: cannot delete, item appears on %d invoice line(s)", httpx.ErrReferenced, count)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "ITEM_DELETE", id, nil)
	return nil
}

// AdjustStock applies a manual signed stock delta.
func (s *Service) AdjustStock(ctx context.Context, id int64, req AdjustStockRequest) (float64, error) {
	if id <= 0 {
		return 0, fmt.Errorf("%w: invalid item id", httpx.ErrValidation)
	}
	if err := s.validate.Struct(req); err != nil {
		return 0, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	stock, err := s.repo.AdjustStock(ctx, id, req.Delta)
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, "ITEM_STOCK_ADJUST", id, map[string]any{"delta": req.Delta, "note": req.Note})
	return stock, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "item", EntityID: strconv.FormatInt(id, 10), Meta: meta})
}
