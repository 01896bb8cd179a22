package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickbill/quickbill/internal/platform/httpx"
)

// Repository persists user accounts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, username, name, role, is_active, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Role, &u.IsActive, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", httpx.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// List returns all users.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Get loads one user.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
	}
	return u, err
}

// Create inserts a new account.
func (r *Repository) Create(ctx context.Context, username, name string, role Role, passwordHash string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `INSERT INTO users (username, name, role, is_active, password_hash, created_at, updated_at)
VALUES ($1,$2,$3,TRUE,$4,NOW(),NOW()) RETURNING `+userColumns,
		username, name, role, passwordHash))
	if err != nil {
		return User{}, mapUniqueViolation(err)
	}
	return u, nil
}

// Update replaces an account's mutable fields.
func (r *Repository) Update(ctx context.Context, id int64, name string, role Role, isActive bool, passwordHash string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `UPDATE users SET name=$2, role=$3, is_active=$4, password_hash=$5, updated_at=NOW()
WHERE id=$1 RETURNING `+userColumns,
		id, name, role, isActive, passwordHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
	}
	return u, err
}

// CountByRole reports how many active accounts hold the role.
func (r *Repository) CountByRole(ctx context.Context, role Role) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role=$1 AND is_active`, role).Scan(&count)
	return count, err
}

// Delete removes an account.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
	}
	return nil
}
