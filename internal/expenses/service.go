package expenses

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quickbill/quickbill/internal/platform/httpx"
	"github.com/quickbill/quickbill/internal/shared"
)

// RepositoryPort describes the persistence surface used by Service.
type RepositoryPort interface {
	List(ctx context.Context, limit, offset int, filters ListFilters) ([]Expense, int, error)
	Get(ctx context.Context, id int64) (Expense, error)
	Create(ctx context.Context, req UpsertExpenseRequest) (Expense, error)
	Update(ctx context.Context, id int64, req UpsertExpenseRequest) (Expense, error)
	Delete(ctx context.Context, id int64) error
}

// AuditPort records expense mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles expense business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	audit    AuditPort
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, validate: validator.New(), audit: audit, now: time.Now}
}

// List returns a page of expenses.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Expense, int, error) {
	limit = shared.ClampLimit(limit, 20, 200)
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset, filters)
}

// Get loads one expense.
func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	if id <= 0 {
		return Expense{}, fmt.Errorf("%w: invalid expense id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a new expense.
func (s *Service) Create(ctx context.Context, req UpsertExpenseRequest) (Expense, error) {
	if err := s.validate.Struct(req); err != nil {
		return Expense{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if req.Date.IsZero() {
		req.Date = s.now()
	}
	expense, err := s.repo.Create(ctx, req)
	if err != nil {
		return Expense{}, err
	}
	s.recordAudit(ctx, "EXPENSE_CREATE", expense.ID, map[string]any{"category": expense.Category, "amount": expense.Amount})
	return expense, nil
}

// Update replaces an expense.
func (s *Service) Update(ctx context.Context, id int64, req UpsertExpenseRequest) (Expense, error) {
	if id <= 0 {
		return Expense{}, fmt.Errorf("%w: invalid expense id", httpx.ErrValidation)
	}
	if err := s.validate.Struct(req); err != nil {
		return Expense{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if req.Date.IsZero() {
		req.Date = s.now()
	}
	expense, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return Expense{}, err
	}
	s.recordAudit(ctx, "EXPENSE_UPDATE", id, nil)
	return expense, nil
}

// Delete removes an expense.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid expense id", httpx.ErrValidation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "EXPENSE_DELETE", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "expense", EntityID: strconv.FormatInt(id, 10), Meta: meta})
}
