package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/pkg/cryptox"
	"github.com/pixelforge/nexus/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	box, err := cryptox.NewSecretBox(key)
	require.NoError(t, err)

	st, err := NewStore("file::memory:", box)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestUser(t *testing.T, st *Store, username string, role domain.Role) domain.User {
	t.Helper()

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$12$fakefakefakefakefakefake",
		Role:         role,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsersCRUD(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, st, "alice", domain.RoleAdmin)

	t.Run("get by id and username", func(t *testing.T) {
		got, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "alice", got.Username)
		require.Equal(t, domain.RoleAdmin, got.Role)
		require.Nil(t, got.MFASecret)
		require.False(t, got.MFAActive())

		got, err = st.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		dup := domain.User{
			ID:           idx.New().String(),
			Username:     "alice",
			Email:        "other@example.com",
			PasswordHash: "x",
			Role:         domain.RoleDeveloper,
		}
		require.ErrorIs(t, st.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		dup := domain.User{
			ID:           idx.New().String(),
			Username:     "alice2",
			Email:        "alice@example.com",
			PasswordHash: "x",
			Role:         domain.RoleDeveloper,
		}
		require.ErrorIs(t, st.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("update rewrites identity fields", func(t *testing.T) {
		u.Email = "new@example.com"
		u.Role = domain.RoleProjectLead
		require.NoError(t, st.Users().UpdateUser(ctx, u))

		got, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "new@example.com", got.Email)
		require.Equal(t, domain.RoleProjectLead, got.Role)
	})

	t.Run("unknown id maps to not found", func(t *testing.T) {
		_, err := st.Users().GetUserByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)

		require.ErrorIs(t, st.Users().DeleteUser(ctx, "missing"), store.ErrNotFound)
		require.ErrorIs(t, st.Users().UpdatePasswordHash(ctx, "missing", "h"), store.ErrNotFound)
	})

	t.Run("is empty", func(t *testing.T) {
		empty, err := st.Users().IsEmpty(ctx)
		require.NoError(t, err)
		require.False(t, empty)
	})

	t.Run("delete is hard", func(t *testing.T) {
		victim := newTestUser(t, st, "victim", domain.RoleDeveloper)
		require.NoError(t, st.Users().DeleteUser(ctx, victim.ID))
		_, err := st.Users().GetUserByID(ctx, victim.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestMFASecretEncryptedAtRest(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, st, "bob", domain.RoleDeveloper)

	const secret = "JBSWY3DPEHPK3PXP"
	require.NoError(t, st.Users().UpdateMFASecret(ctx, u.ID, secret))

	// Raw row must not contain the plaintext secret
	var raw string
	err := st.db.QueryRowContext(ctx,
		`SELECT mfa_secret FROM users WHERE id = ?`, u.ID).Scan(&raw)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.NotEqual(t, secret, raw)
	require.NotContains(t, raw, secret)

	// The repo decrypts transparently
	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MFASecret)
	require.Equal(t, secret, *got.MFASecret)
	require.False(t, got.MFAActive(), "pending secret must not enable MFA")

	require.NoError(t, st.Users().EnableMFA(ctx, u.ID))
	got, err = st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.MFAActive())

	require.NoError(t, st.Users().DisableMFA(ctx, u.ID))
	got, err = st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.MFAActive())
	require.Nil(t, got.MFASecret)
}

func TestFailureCountersAndLockout(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, st, "carol", domain.RoleDeveloper)

	n, err := st.Users().IncrementFailedAttempts(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, err = st.Users().IncrementFailedAttempts(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	until := time.Now().UTC().Add(15 * time.Minute)
	require.NoError(t, st.Users().SetLockout(ctx, u.ID, until))

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.FailedAttempts)
	require.True(t, got.Locked(time.Now().UTC()))
	require.False(t, got.Locked(until.Add(time.Second)))

	// A successful login clears everything
	loginAt := time.Now().UTC()
	require.NoError(t, st.Users().RecordLogin(ctx, u.ID, loginAt))
	got, err = st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedAttempts)
	require.Nil(t, got.LockedUntil)
	require.NotNil(t, got.LastLogin)
}

func TestProjectsCRUDAndAssignment(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	lead := newTestUser(t, st, "lead", domain.RoleProjectLead)
	dev := newTestUser(t, st, "dev", domain.RoleDeveloper)

	p := domain.Project{
		ID:          idx.New().String(),
		Name:        "Apollo",
		Description: "Moonshot",
		Deadline:    time.Now().UTC().Add(30 * 24 * time.Hour),
		Status:      domain.ProjectActive,
		LeadID:      lead.ID,
	}
	require.NoError(t, st.Projects().CreateProject(ctx, p))

	t.Run("get includes developers", func(t *testing.T) {
		got, err := st.Projects().GetProjectByID(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, "Apollo", got.Name)
		require.Equal(t, lead.ID, got.LeadID)
		require.Empty(t, got.Developers)
	})

	t.Run("assignment is idempotent", func(t *testing.T) {
		require.NoError(t, st.Projects().AssignDeveloper(ctx, p.ID, dev.ID))
		require.NoError(t, st.Projects().AssignDeveloper(ctx, p.ID, dev.ID))

		got, err := st.Projects().GetProjectByID(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, []string{dev.ID}, got.Developers)
	})

	t.Run("list by lead and developer", func(t *testing.T) {
		byLead, err := st.Projects().ListProjectsByLead(ctx, lead.ID)
		require.NoError(t, err)
		require.Len(t, byLead, 1)

		byDev, err := st.Projects().ListProjectsByDeveloper(ctx, dev.ID)
		require.NoError(t, err)
		require.Len(t, byDev, 1)

		byOther, err := st.Projects().ListProjectsByDeveloper(ctx, lead.ID)
		require.NoError(t, err)
		require.Empty(t, byOther)
	})

	t.Run("remove developer", func(t *testing.T) {
		require.NoError(t, st.Projects().RemoveDeveloper(ctx, p.ID, dev.ID))
		got, err := st.Projects().GetProjectByID(ctx, p.ID)
		require.NoError(t, err)
		require.Empty(t, got.Developers)
	})

	t.Run("update", func(t *testing.T) {
		p.Status = domain.ProjectCompleted
		p.Name = "Apollo 11"
		require.NoError(t, st.Projects().UpdateProject(ctx, p))
		got, err := st.Projects().GetProjectByID(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, domain.ProjectCompleted, got.Status)
		require.Equal(t, "Apollo 11", got.Name)
	})

	t.Run("delete cascades assignments", func(t *testing.T) {
		require.NoError(t, st.Projects().AssignDeveloper(ctx, p.ID, dev.ID))
		require.NoError(t, st.Projects().DeleteProject(ctx, p.ID))

		_, err := st.Projects().GetProjectByID(ctx, p.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		byDev, err := st.Projects().ListProjectsByDeveloper(ctx, dev.ID)
		require.NoError(t, err)
		require.Empty(t, byDev)
	})
}

func TestDocumentsCRUD(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	lead := newTestUser(t, st, "doclead", domain.RoleProjectLead)
	p := domain.Project{
		ID:          idx.New().String(),
		Name:        "Docs",
		Description: "Has documents",
		Deadline:    time.Now().UTC().Add(time.Hour),
		Status:      domain.ProjectActive,
		LeadID:      lead.ID,
	}
	require.NoError(t, st.Projects().CreateProject(ctx, p))

	d := domain.Document{
		ID:           idx.New().String(),
		ProjectID:    p.ID,
		StoredName:   "deadbeefdeadbeefdeadbeefdeadbeef.pdf",
		OriginalName: "plan.pdf",
		ContentType:  "application/pdf",
		Size:         1024,
		UploadedBy:   lead.ID,
		UploadedAt:   time.Now().UTC(),
	}
	require.NoError(t, st.Documents().CreateDocument(ctx, d))

	got, err := st.Documents().GetDocumentByID(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, "plan.pdf", got.OriginalName)
	require.Equal(t, d.StoredName, got.StoredName)

	docs, err := st.Documents().ListProjectDocuments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	require.NoError(t, st.Documents().DeleteDocument(ctx, d.ID))
	_, err = st.Documents().GetDocumentByID(ctx, d.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRevokedTokens(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	future := time.Now().UTC().Add(time.Hour)
	past := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, st.RevokedTokens().RevokeToken(ctx, "jti-live", future))
	require.NoError(t, st.RevokedTokens().RevokeToken(ctx, "jti-stale", past))

	// Revoking the same jti twice must not fail (idempotent logout)
	require.NoError(t, st.RevokedTokens().RevokeToken(ctx, "jti-live", future))

	revoked, err := st.RevokedTokens().IsTokenRevoked(ctx, "jti-live")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = st.RevokedTokens().IsTokenRevoked(ctx, "jti-unknown")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, st.RevokedTokens().DeleteExpiredRevocations(ctx))

	revoked, err = st.RevokedTokens().IsTokenRevoked(ctx, "jti-stale")
	require.NoError(t, err)
	require.False(t, revoked)

	revoked, err = st.RevokedTokens().IsTokenRevoked(ctx, "jti-live")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	boom := func(tx store.Tx) error {
		u := domain.User{
			ID:           idx.New().String(),
			Username:     "ghost",
			Email:        "ghost@example.com",
			PasswordHash: "x",
			Role:         domain.RoleDeveloper,
		}
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return context.Canceled
	}
	require.ErrorIs(t, st.WithTx(ctx, boom), context.Canceled)

	_, err := st.Users().GetUserByUsername(ctx, "ghost")
	require.ErrorIs(t, err, store.ErrNotFound)
}
