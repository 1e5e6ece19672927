package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/pkg/cryptox"
	"github.com/pixelforge/nexus/pkg/idx"
)

var (
	// ErrDuplicateIdentity surfaces a username or email collision.
	ErrDuplicateIdentity = errors.New("username or email already in use")

	// ErrInvalidRole rejects values outside the closed role set.
	ErrInvalidRole = errors.New("invalid role")
)

// UserService is the administrative provisioning surface over the
// credential store.
type UserService struct {
	Store store.Store
}

// CreateUserParams carries the provisioning fields. Role defaults to
// developer when empty, matching the original provisioning behavior.
type CreateUserParams struct {
	Username string
	Email    string
	Password string
	Role     string
}

func (s *UserService) CreateUser(ctx context.Context, p CreateUserParams) (domain.User, error) {
	username := strings.TrimSpace(p.Username)
	email := normalizeEmail(p.Email)
	if username == "" || email == "" {
		return domain.User{}, errors.New("username and email are required")
	}
	if len(p.Password) < MinPasswordLength {
		return domain.User{}, ErrPasswordPolicy
	}

	role := domain.RoleDeveloper
	if p.Role != "" {
		parsed, err := domain.ParseRole(p.Role)
		if err != nil {
			return domain.User{}, ErrInvalidRole
		}
		role = parsed
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrDuplicateIdentity
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// UpdateUserParams holds the mutable administrative fields; nil means keep.
type UpdateUserParams struct {
	Username *string
	Email    *string
	Role     *string
	Password *string
}

func (s *UserService) UpdateUser(ctx context.Context, id string, p UpdateUserParams) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	if p.Username != nil {
		user.Username = strings.TrimSpace(*p.Username)
	}
	if p.Email != nil {
		user.Email = normalizeEmail(*p.Email)
	}
	if p.Role != nil {
		role, err := domain.ParseRole(*p.Role)
		if err != nil {
			return domain.User{}, ErrInvalidRole
		}
		user.Role = role
	}

	// Validate and hash the password before any write so a rejected
	// password leaves none of the other field changes behind.
	var newHash string
	if p.Password != nil {
		if len(*p.Password) < MinPasswordLength {
			return domain.User{}, ErrPasswordPolicy
		}
		hash, err := cryptox.HashPassword(*p.Password)
		if err != nil {
			return domain.User{}, err
		}
		newHash = hash
	}

	if err := s.Store.Users().UpdateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrDuplicateIdentity
		}
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}

	if p.Password != nil {
		if err := s.Store.Users().UpdatePasswordHash(ctx, id, newHash); err != nil {
			return domain.User{}, err
		}
	}

	return s.Store.Users().GetUserByID(ctx, id)
}

// DeleteUser hard-deletes the identity. No tombstones.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	return s.Store.Users().DeleteUser(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
