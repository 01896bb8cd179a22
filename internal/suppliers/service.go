package suppliers

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
	List(ctx context.Context, limit, offset int, filters ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, req UpsertSupplierRequest) (Supplier, error)
	Update(ctx context.Context, id int64, req UpsertSupplierRequest) (Supplier, error)
	CountInvoices(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

// AuditPort records supplier mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles supplier business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	audit    AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, validate: validator.New(), audit: audit}
}

// List returns a page of suppliers.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Supplier, int, error) {
	limit = shared.ClampLimit(limit, 20, 200)
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset, filters)
}

// Get loads one supplier.
func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, fmt.Errorf("%w: invalid supplier id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a new supplier.
func (s *Service) Create(ctx context.Context, req UpsertSupplierRequest) (Supplier, error) {
	if err := s.validate.Struct(req); err != nil {
		return Supplier{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	supplier, err := s.repo.Create(ctx, req)
	if err != nil {
		return Supplier{}, err
	}
	s.recordAudit(ctx, "SUPPLIER_CREATE", supplier.ID, map[string]any{"name": supplier.Name})
	return supplier, nil
}

// Update replaces a supplier's contact details.
func (s *Service) Update(ctx context.Context, id int64, req UpsertSupplierRequest) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, fmt.Errorf("%w: invalid supplier id", httpx.ErrValidation)
	}
	if err := s.validate.Struct(req); err != nil {
		return Supplier{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	supplier, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return Supplier{}, err
	}
	s.recordAudit(ctx, "SUPPLIER_UPDATE", id, nil)
	return supplier, nil
}

// Delete removes a supplier unless invoices reference it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid supplier id", httpx.ErrValidation)
	}
	count, err := s.repo.CountInvoices(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: cannot delete, supplier has %d invoice(s)", httpx.ErrReferenced, count)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "SUPPLIER_DELETE", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "supplier", EntityID: strconv.FormatInt(id, 10), Meta: meta})
}
