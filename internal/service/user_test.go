package service

import (
	"context"
	"testing"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	users := &UserService{Store: st}
	ctx := context.Background()

	t.Run("defaults to developer role", func(t *testing.T) {
		u, err := users.CreateUser(ctx, CreateUserParams{
			Username: "lena",
			Email:    "Lena@Example.COM",
			Password: "password123",
		})
		require.NoError(t, err)
		require.Equal(t, domain.RoleDeveloper, u.Role)
		require.Equal(t, "lena@example.com", u.Email, "email is normalized")
		require.NoError(t, cryptox.VerifyPassword("password123", u.PasswordHash))
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := users.CreateUser(ctx, CreateUserParams{
			Username: "mallory",
			Email:    "mallory@example.com",
			Password: "password123",
			Role:     "superuser",
		})
		require.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, err := users.CreateUser(ctx, CreateUserParams{
			Username: "short",
			Email:    "short@example.com",
			Password: "tiny",
		})
		require.ErrorIs(t, err, ErrPasswordPolicy)
	})

	t.Run("rejects duplicate username", func(t *testing.T) {
		_, err := users.CreateUser(ctx, CreateUserParams{
			Username: "lena",
			Email:    "different@example.com",
			Password: "password123",
		})
		require.ErrorIs(t, err, ErrDuplicateIdentity)
	})
}

func TestUpdateUser(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	users := &UserService{Store: st}
	ctx := context.Background()

	u, err := users.CreateUser(ctx, CreateUserParams{
		Username: "nadia",
		Email:    "nadia@example.com",
		Password: "password123",
		Role:     "project_lead",
	})
	require.NoError(t, err)

	t.Run("partial update keeps unset fields", func(t *testing.T) {
		email := "nadia@corp.example.com"
		got, err := users.UpdateUser(ctx, u.ID, UpdateUserParams{Email: &email})
		require.NoError(t, err)
		require.Equal(t, "nadia@corp.example.com", got.Email)
		require.Equal(t, "nadia", got.Username)
		require.Equal(t, domain.RoleProjectLead, got.Role)
	})

	t.Run("password update re-hashes", func(t *testing.T) {
		pw := "a brand new password"
		got, err := users.UpdateUser(ctx, u.ID, UpdateUserParams{Password: &pw})
		require.NoError(t, err)
		require.NotEqual(t, pw, got.PasswordHash)
		require.NoError(t, cryptox.VerifyPassword(pw, got.PasswordHash))
	})

	t.Run("role change applies", func(t *testing.T) {
		role := "admin"
		got, err := users.UpdateUser(ctx, u.ID, UpdateUserParams{Role: &role})
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, got.Role)
	})

	t.Run("invalid role rejected", func(t *testing.T) {
		role := "root"
		_, err := users.UpdateUser(ctx, u.ID, UpdateUserParams{Role: &role})
		require.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("rejected password leaves other fields untouched", func(t *testing.T) {
		before, err := users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)

		role := "developer"
		username := "nadia-renamed"
		pw := "short"
		_, err = users.UpdateUser(ctx, u.ID, UpdateUserParams{
			Username: &username,
			Role:     &role,
			Password: &pw,
		})
		require.ErrorIs(t, err, ErrPasswordPolicy)

		after, err := users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, before.Username, after.Username)
		require.Equal(t, before.Role, after.Role)
		require.Equal(t, before.PasswordHash, after.PasswordHash)
	})
}
