package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/stretchr/testify/require"
)

func TestCreateProjectValidation(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	projects := &ProjectService{Store: st}
	ctx := context.Background()

	lead := seedUser(t, st, "plead", domain.RoleProjectLead)
	deadline := time.Now().UTC().Add(24 * time.Hour)

	t.Run("valid project defaults to active", func(t *testing.T) {
		p, err := projects.CreateProject(ctx, ProjectParams{
			Name:        "Orion",
			Description: "Next launch",
			Deadline:    deadline,
			LeadID:      lead.ID,
		})
		require.NoError(t, err)
		require.Equal(t, domain.ProjectActive, p.Status)
		require.NotEmpty(t, p.ID)
	})

	t.Run("name too long", func(t *testing.T) {
		_, err := projects.CreateProject(ctx, ProjectParams{
			Name:        strings.Repeat("x", 101),
			Description: "d",
			Deadline:    deadline,
			LeadID:      lead.ID,
		})
		require.ErrorIs(t, err, ErrInvalidProject)
	})

	t.Run("description too long", func(t *testing.T) {
		_, err := projects.CreateProject(ctx, ProjectParams{
			Name:        "n",
			Description: strings.Repeat("x", 1001),
			Deadline:    deadline,
			LeadID:      lead.ID,
		})
		require.ErrorIs(t, err, ErrInvalidProject)
	})

	t.Run("missing deadline", func(t *testing.T) {
		_, err := projects.CreateProject(ctx, ProjectParams{
			Name:        "n",
			Description: "d",
			LeadID:      lead.ID,
		})
		require.ErrorIs(t, err, ErrInvalidProject)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := projects.CreateProject(ctx, ProjectParams{
			Name:        "n",
			Description: "d",
			Deadline:    deadline,
			Status:      "cancelled",
			LeadID:      lead.ID,
		})
		require.ErrorIs(t, err, ErrInvalidProject)
	})
}

func TestListProjectsForRole(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	projects := &ProjectService{Store: st}
	ctx := context.Background()

	admin := seedUser(t, st, "padmin", domain.RoleAdmin)
	leadA := seedUser(t, st, "pleada", domain.RoleProjectLead)
	leadB := seedUser(t, st, "pleadb", domain.RoleProjectLead)
	dev := seedUser(t, st, "pdev", domain.RoleDeveloper)

	deadline := time.Now().UTC().Add(24 * time.Hour)
	pa, err := projects.CreateProject(ctx, ProjectParams{Name: "A", Description: "a", Deadline: deadline, LeadID: leadA.ID})
	require.NoError(t, err)
	_, err = projects.CreateProject(ctx, ProjectParams{Name: "B", Description: "b", Deadline: deadline, LeadID: leadB.ID})
	require.NoError(t, err)

	_, err = projects.AssignDeveloper(ctx, pa.ID, dev.ID)
	require.NoError(t, err)

	t.Run("admin sees all", func(t *testing.T) {
		got, err := projects.ListProjectsFor(ctx, admin)
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("lead sees own", func(t *testing.T) {
		got, err := projects.ListProjectsFor(ctx, leadA)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "A", got[0].Name)
	})

	t.Run("developer sees none here", func(t *testing.T) {
		got, err := projects.ListProjectsFor(ctx, dev)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("developer sees assignments", func(t *testing.T) {
		got, err := projects.ListAssignedProjects(ctx, dev.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, pa.ID, got[0].ID)
	})
}

func TestAssignDeveloperChecksExistence(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	projects := &ProjectService{Store: st}
	ctx := context.Background()

	lead := seedUser(t, st, "pexist", domain.RoleProjectLead)
	deadline := time.Now().UTC().Add(24 * time.Hour)
	p, err := projects.CreateProject(ctx, ProjectParams{Name: "E", Description: "e", Deadline: deadline, LeadID: lead.ID})
	require.NoError(t, err)

	_, err = projects.AssignDeveloper(ctx, p.ID, "no-such-user")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = projects.AssignDeveloper(ctx, "no-such-project", lead.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateProjectPartialFields(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	projects := &ProjectService{Store: st}
	ctx := context.Background()

	lead := seedUser(t, st, "pupd", domain.RoleProjectLead)
	deadline := time.Now().UTC().Add(24 * time.Hour)
	p, err := projects.CreateProject(ctx, ProjectParams{Name: "U", Description: "u", Deadline: deadline, LeadID: lead.ID})
	require.NoError(t, err)

	got, err := projects.UpdateProject(ctx, p.ID, ProjectParams{Status: "on-hold"})
	require.NoError(t, err)
	require.Equal(t, domain.ProjectOnHold, got.Status)
	require.Equal(t, "U", got.Name)
	require.Equal(t, lead.ID, got.LeadID)

	_, err = projects.UpdateProject(ctx, p.ID, ProjectParams{Status: "bogus"})
	require.ErrorIs(t, err, ErrInvalidProject)

	_, err = projects.UpdateProject(ctx, "missing", ProjectParams{Name: "x"})
	require.ErrorIs(t, err, store.ErrNotFound)
}
