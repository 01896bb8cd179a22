package users

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/quickbill/quickbill/internal/platform/httpx"
)

type memoryUserRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[int64]User{}}
}

func (r *memoryUserRepo) List(ctx context.Context) ([]User, error) {
	out := []User{}
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryUserRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
	}
	return u, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, username, name string, role Role, passwordHash string) (User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return User{}, fmt.Errorf("%w: users_username_key", httpx.ErrDuplicate)
		}
	}
	r.nextID++
	u := User{ID: r.nextID, Username: username, Name: name, Role: role, IsActive: true, PasswordHash: passwordHash}
	r.users[u.ID] = u
	return u, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, id int64, name string, role Role, isActive bool, passwordHash string) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
	}
	u.Name, u.Role, u.IsActive, u.PasswordHash = name, role, isActive, passwordHash
	r.users[id] = u
	return u, nil
}

func (r *memoryUserRepo) CountByRole(ctx context.Context, role Role) (int, error) {
	count := 0
	for _, u := range r.users {
		if u.Role == role && u.IsActive {
			count++
		}
	}
	return count, nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
	}
	delete(r.users, id)
	return nil
}

func TestCreateHashesPassword(t *testing.T) {
	svc := NewService(newMemoryUserRepo(), nil)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Username: "owner", Name: "Owner", Password: "s3cret-pass", Role: RoleSuperAdmin,
	})
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pass", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))
}

func TestCreateDuplicateUsername(t *testing.T) {
	svc := NewService(newMemoryUserRepo(), nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Username: "owner", Name: "Owner", Password: "s3cret-pass", Role: RoleAdmin,
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserRequest{
		Username: "owner", Name: "Other", Password: "another-pass", Role: RoleStaff,
	})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestLastSuperAdminCannotBeDeleted(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo, nil)

	owner, err := svc.Create(context.Background(), CreateUserRequest{
		Username: "owner", Name: "Owner", Password: "s3cret-pass", Role: RoleSuperAdmin,
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), owner.ID)
	require.ErrorIs(t, err, ErrLastSuperAdmin)

	// A second active SUPER_ADMIN unblocks the delete.
	_, err = svc.Create(context.Background(), CreateUserRequest{
		Username: "owner2", Name: "Second Owner", Password: "s3cret-pass", Role: RoleSuperAdmin,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), owner.ID))
}

func TestLastSuperAdminCannotBeDemoted(t *testing.T) {
	svc := NewService(newMemoryUserRepo(), nil)

	owner, err := svc.Create(context.Background(), CreateUserRequest{
		Username: "owner", Name: "Owner", Password: "s3cret-pass", Role: RoleSuperAdmin,
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), owner.ID, UpdateUserRequest{
		Name: "Owner", Role: RoleAdmin, IsActive: true,
	})
	require.ErrorIs(t, err, ErrLastSuperAdmin)

	_, err = svc.Update(context.Background(), owner.ID, UpdateUserRequest{
		Name: "Owner", Role: RoleSuperAdmin, IsActive: false,
	})
	require.ErrorIs(t, err, ErrLastSuperAdmin, "deactivation counts as losing the role")
}

func TestUpdateKeepsHashWhenPasswordEmpty(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo, nil)

	staff, err := svc.Create(context.Background(), CreateUserRequest{
		Username: "clerk", Name: "Clerk", Password: "s3cret-pass", Role: RoleStaff,
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), staff.ID, UpdateUserRequest{
		Name: "Senior Clerk", Role: RoleStaff, IsActive: true,
	})
	require.NoError(t, err)
	require.Equal(t, staff.PasswordHash, updated.PasswordHash)

	updated, err = svc.Update(context.Background(), staff.ID, UpdateUserRequest{
		Name: "Senior Clerk", Role: RoleStaff, IsActive: true, Password: "fresh-password",
	})
	require.NoError(t, err)
	require.NotEqual(t, staff.PasswordHash, updated.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("fresh-password")))
}
