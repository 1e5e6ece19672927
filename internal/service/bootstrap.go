package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/pkg/cryptox"
	"github.com/pixelforge/nexus/pkg/idx"
)

// BootstrapService seeds the first admin account into an empty database so
// the instance is usable out of the box. It does nothing once any user
// exists.
type BootstrapService struct {
	Store  store.Store
	Logger *slog.Logger

	Username string
	Email    string
	Password string
}

// EnsureAdmin creates the initial admin if the users table is empty. When no
// password is configured a random one is generated and logged exactly once;
// it should be changed on first login.
func (s *BootstrapService) EnsureAdmin(ctx context.Context) error {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("check users: %w", err)
	}
	if !empty {
		return nil
	}

	username := strings.TrimSpace(s.Username)
	if username == "" {
		username = "admin"
	}
	email := strings.ToLower(strings.TrimSpace(s.Email))
	if email == "" {
		email = "admin@localhost"
	}

	password := s.Password
	generated := false
	if password == "" {
		password, err = cryptox.GenerateHexToken(16)
		if err != nil {
			return fmt.Errorf("generate admin password: %w", err)
		}
		generated = true
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}
	if err := s.Store.Users().CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	if generated {
		s.Logger.Warn("seeded initial admin account with generated password",
			"username", username,
			"password", password,
		)
	} else {
		s.Logger.Info("seeded initial admin account", "username", username)
	}
	return nil
}
