package parties

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
	List(ctx context.Context, limit, offset int, filters ListFilters) ([]Party, int, error)
	Get(ctx context.Context, id int64) (Party, error)
	Create(ctx context.Context, req UpsertPartyRequest) (Party, error)
	Update(ctx context.Context, id int64, req UpsertPartyRequest) (Party, error)
	CountInvoices(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
	Ledger(ctx context.Context, id int64) ([]LedgerEntry, error)
}

// AuditPort records party mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles party business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	audit    AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, validate: validator.New(), audit: audit}
}

// List returns a page of parties.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Party, int, error) {
	limit = shared.ClampLimit(limit, 20, 200)
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset, filters)
}

// Get loads one party.
func (s *Service) Get(ctx context.Context, id int64) (Party, error) {
	if id <= 0 {
		return Party{}, fmt.Errorf("%w: invalid party id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a new party.
func (s *Service) Create(ctx context.Context, req UpsertPartyRequest) (Party, error) {
	if err := s.validate.Struct(req); err != nil {
		return Party{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	party, err := s.repo.Create(ctx, req)
	if err != nil {
		return Party{}, err
	}
	s.recordAudit(ctx, "PARTY_CREATE", party.ID, map[string]any{"name": party.Name})
	return party, nil
}

// Update replaces a party's contact details.
func (s *Service) Update(ctx context.Context, id int64, req UpsertPartyRequest) (Party, error) {
	if id <= 0 {
		return Party{}, fmt.Errorf("%w: invalid party id", httpx.ErrValidation)
	}
	if err := s.validate.Struct(req); err != nil {
		return Party{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	party, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return Party{}, err
	}
	s.recordAudit(ctx, "PARTY_UPDATE", id, nil)
	return party, nil
}

// Delete removes a party. Blocked while invoices reference it; payments are
// cascaded inside the repository transaction.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid party id", httpx.ErrValidation)
	}
	count, err := s.repo.CountInvoices(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: cannot delete, party has %d invoice(s)", httpx.ErrReferenced, count)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "PARTY_DELETE", id, nil)
	return nil
}

// Ledger returns the party's balance history.
func (s *Service) Ledger(ctx context.Context, id int64) ([]LedgerEntry, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid party id", httpx.ErrValidation)
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Ledger(ctx, id)
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "party", EntityID: strconv.FormatInt(id, 10), Meta: meta})
}
