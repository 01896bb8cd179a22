package stock

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
	List(ctx context.Context, limit, offset int, filters ListFilters) ([]StagedItem, int, error)
	Get(ctx context.Context, id int64) (StagedItem, error)
	Create(ctx context.Context, req UpsertStagedItemRequest) (StagedItem, error)
	Update(ctx context.Context, id int64, req UpsertStagedItemRequest) (StagedItem, error)
	Delete(ctx context.Context, id int64) error
	Move(ctx context.Context, id int64, req MoveRequest) (int64, error)
}

// AuditPort records stock mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles staged stock business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	audit    AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, validate: validator.New(), audit: audit}
}

// List returns a page of staged rows.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]StagedItem, int, error) {
	limit = shared.ClampLimit(limit, 20, 200)
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset, filters)
}

// Get loads one staged row.
func (s *Service) Get(ctx context.Context, id int64) (StagedItem, error) {
	if id <= 0 {
		return StagedItem{}, fmt.Errorf("%w: invalid stock id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create stages a new stock row.
func (s *Service) Create(ctx context.Context, req UpsertStagedItemRequest) (StagedItem, error) {
	if err := s.validate.Struct(req); err != nil {
		return StagedItem{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	staged, err := s.repo.Create(ctx, req)
	if err != nil {
		return StagedItem{}, err
	}
	s.recordAudit(ctx, "STOCK_CREATE", staged.ID, map[string]any{"code": staged.Code})
	return staged, nil
}

// Update replaces a staged row.
func (s *Service) Update(ctx context.Context, id int64, req UpsertStagedItemRequest) (StagedItem, error) {
	if id <= 0 {
		return StagedItem{}, fmt.Errorf("%w: invalid stock id", httpx.ErrValidation)
	}
	if err := s.validate.Struct(req); err != nil {
		return StagedItem{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	staged, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return StagedItem{}, err
	}
	s.recordAudit(ctx, "STOCK_UPDATE", id, nil)
	return staged, nil
}

// Delete removes a staged row.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid stock id", httpx.ErrValidation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "STOCK_DELETE", id, nil)
	return nil
}

// Move promotes a staged row into the items catalog. Both the insert and the
// staging delete happen atomically; a barcode collision leaves the staged
// row untouched.
func (s *Service) Move(ctx context.Context, id int64, req MoveRequest) (int64, error) {
	if id <= 0 {
		return 0, fmt.Errorf("%w: invalid stock id", httpx.ErrValidation)
	}
	if err := s.validate.Struct(req); err != nil {
		return 0, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	itemID, err := s.repo.Move(ctx, id, req)
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, "STOCK_MOVE", id, map[string]any{"item_id": itemID})
	return itemID, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "stock", EntityID: strconv.FormatInt(id, 10), Meta: meta})
}
