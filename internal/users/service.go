package users

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/quickbill/quickbill/internal/platform/httpx"
	"github.com/quickbill/quickbill/internal/shared"
)

// RepositoryPort describes the persistence surface used by Service.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, username, name string, role Role, passwordHash string) (User, error)
	Update(ctx context.Context, id int64, name string, role Role, isActive bool, passwordHash string) (User, error)
	CountByRole(ctx context.Context, role Role) (int, error)
	Delete(ctx context.Context, id int64) error
}

// AuditPort records account mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ErrLastSuperAdmin blocks removing or demoting the only remaining
// SUPER_ADMIN account.
var ErrLastSuperAdmin = fmt.Errorf("%w: the last SUPER_ADMIN cannot be removed or demoted", httpx.ErrBusinessRule)

// Service handles account management.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	audit    AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, validate: validator.New(), audit: audit}
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get loads one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("%w: invalid user id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create registers a new account with a bcrypt password hash.
func (s *Service) Create(ctx context.Context, req CreateUserRequest) (User, error) {
	if err := s.validate.Struct(req); err != nil {
		return User{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.Create(ctx, req.Username, req.Name, req.Role, string(hash))
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, "USER_CREATE", user.ID, map[string]any{"username": user.Username, "role": user.Role})
	return user, nil
}

// Update modifies an account. Demoting or deactivating the last active
// SUPER_ADMIN is refused.
func (s *Service) Update(ctx context.Context, id int64, req UpdateUserRequest) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("%w: invalid user id", httpx.ErrValidation)
	}
	if err := s.validate.Struct(req); err != nil {
		return User{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	losesSuperAdmin := current.Role == RoleSuperAdmin && current.IsActive &&
		(req.Role != RoleSuperAdmin || !req.IsActive)
	if losesSuperAdmin {
		count, err := s.repo.CountByRole(ctx, RoleSuperAdmin)
		if err != nil {
			return User{}, err
		}
		if count <= 1 {
			return User{}, ErrLastSuperAdmin
		}
	}
	hash := current.PasswordHash
	if req.Password != "" {
		newHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		hash = string(newHash)
	}
	user, err := s.repo.Update(ctx, id, req.Name, req.Role, req.IsActive, hash)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, "USER_UPDATE", id, map[string]any{"role": user.Role, "is_active": user.IsActive})
	return user, nil
}

// Delete removes an account. The last active SUPER_ADMIN is refused.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid user id", httpx.ErrValidation)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Role == RoleSuperAdmin && current.IsActive {
		count, err := s.repo.CountByRole(ctx, RoleSuperAdmin)
		if err != nil {
			return err
		}
		if count <= 1 {
			return ErrLastSuperAdmin
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "USER_DELETE", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "user", EntityID: strconv.FormatInt(id, 10), Meta: meta})
}
