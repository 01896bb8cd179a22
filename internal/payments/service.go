package payments

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
	List(ctx context.Context, limit, offset int, filters ListFilters) ([]Payment, int, error)
	Get(ctx context.Context, id int64) (Payment, error)
	Create(ctx context.Context, req CreatePaymentRequest, balanceDelta float64) (Payment, error)
	Delete(ctx context.Context, id int64) error
}

// AuditPort records payment mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles payment business logic.
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

// List returns a page of payments.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Payment, int, error) {
	limit = shared.ClampLimit(limit, 20, 200)
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset, filters)
}

// Get loads one payment.
func (s *Service) Get(ctx context.Context, id int64) (Payment, error) {
	if id <= 0 {
		return Payment{}, fmt.Errorf("%w: invalid payment id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create records a payment and its balance effect atomically. An IN payment
// reduces what the party owes, an OUT payment raises it.
func (s *Service) Create(ctx context.Context, req CreatePaymentRequest) (Payment, error) {
	if err := s.validate.Struct(req); err != nil {
		return Payment{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if req.Date.IsZero() {
		req.Date = s.now()
	}
	if req.Mode == "" {
		req.Mode = "CASH"
	}
	delta := req.Direction.BalanceDelta() * req.Amount
	payment, err := s.repo.Create(ctx, req, delta)
	if err != nil {
		return Payment{}, err
	}
	s.recordAudit(ctx, "PAYMENT_CREATE", payment.ID, map[string]any{
		"party_id":  payment.PartyID,
		"direction": payment.Direction,
		"amount":    payment.Amount,
	})
	return payment, nil
}

// Delete removes a payment and reverses its balance effect.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid payment id", httpx.ErrValidation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "PAYMENT_DELETE", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "payment", EntityID: strconv.FormatInt(id, 10), Meta: meta})
}
