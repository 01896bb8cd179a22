package users

import "time"

// Role of an account. SUPER_ADMIN accounts own the installation; the last
// one can be neither deleted nor demoted.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleStaff      Role = "STAFF"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleSuperAdmin || r == RoleAdmin || r == RoleStaff
}

// User is an application account. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateUserRequest is the creation payload.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Name     string `json:"name" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     Role   `json:"role" validate:"required,oneof=SUPER_ADMIN ADMIN STAFF"`
}

// UpdateUserRequest is the update payload. Password is optional; empty means
// keep the current hash.
type UpdateUserRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	Role     Role   `json:"role" validate:"required,oneof=SUPER_ADMIN ADMIN STAFF"`
	IsActive bool   `json:"is_active"`
}
