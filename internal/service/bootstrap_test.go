package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnsureAdminSeedsEmptyDatabase(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	boot := &BootstrapService{
		Store:    st,
		Logger:   discardLogger(),
		Username: "root",
		Email:    "Root@Example.com",
		Password: "bootstrap-password",
	}
	require.NoError(t, boot.EnsureAdmin(ctx))

	admin, err := st.Users().GetUserByUsername(ctx, "root")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, admin.Role)
	require.Equal(t, "root@example.com", admin.Email)
	require.NoError(t, cryptox.VerifyPassword("bootstrap-password", admin.PasswordHash))

	// Second run is a no-op
	require.NoError(t, boot.EnsureAdmin(ctx))
	users, err := st.Users().ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestEnsureAdminGeneratesPasswordWhenUnset(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	boot := &BootstrapService{Store: st, Logger: discardLogger()}
	require.NoError(t, boot.EnsureAdmin(ctx))

	admin, err := st.Users().GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, "admin@localhost", admin.Email)
	require.NotEmpty(t, admin.PasswordHash)
}

func TestEnsureAdminSkipsPopulatedDatabase(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	seedUser(t, st, "existing", domain.RoleDeveloper)

	boot := &BootstrapService{Store: st, Logger: discardLogger(), Username: "root"}
	require.NoError(t, boot.EnsureAdmin(ctx))

	_, err := st.Users().GetUserByUsername(ctx, "root")
	require.Error(t, err)
}

func TestHousekeepingPrunesExpiredRevocations(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.RevokedTokens().RevokeToken(ctx, "stale", time.Now().UTC().Add(-time.Hour)))
	require.NoError(t, st.RevokedTokens().RevokeToken(ctx, "live", time.Now().UTC().Add(time.Hour)))

	hk := NewHousekeepingService(st, discardLogger(), time.Hour)
	hk.Start()
	hk.Stop()

	revoked, err := st.RevokedTokens().IsTokenRevoked(ctx, "stale")
	require.NoError(t, err)
	require.False(t, revoked)

	revoked, err = st.RevokedTokens().IsTokenRevoked(ctx, "live")
	require.NoError(t, err)
	require.True(t, revoked)
}
