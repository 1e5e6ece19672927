package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/pkg/idx"
)

var ErrInvalidProject = errors.New("invalid project fields")

const (
	maxProjectNameLen        = 100
	maxProjectDescriptionLen = 1000
)

type ProjectService struct {
	Store store.Store
}

type ProjectParams struct {
	Name        string
	Description string
	Deadline    time.Time
	Status      string
	LeadID      string
}

func (p ProjectParams) validate() error {
	if p.Name == "" || len(p.Name) > maxProjectNameLen {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidProject, maxProjectNameLen)
	}
	if p.Description == "" || len(p.Description) > maxProjectDescriptionLen {
		return fmt.Errorf("%w: description must be 1-%d characters", ErrInvalidProject, maxProjectDescriptionLen)
	}
	if p.Deadline.IsZero() {
		return fmt.Errorf("%w: deadline is required", ErrInvalidProject)
	}
	return nil
}

func (s *ProjectService) CreateProject(ctx context.Context, p ProjectParams) (domain.Project, error) {
	if err := p.validate(); err != nil {
		return domain.Project{}, err
	}

	status := domain.ProjectActive
	if p.Status != "" {
		status = domain.ProjectStatus(p.Status)
		if !status.Valid() {
			return domain.Project{}, fmt.Errorf("%w: unknown status %q", ErrInvalidProject, p.Status)
		}
	}

	project := domain.Project{
		ID:          idx.New().String(),
		Name:        p.Name,
		Description: p.Description,
		Deadline:    p.Deadline.UTC(),
		Status:      status,
		LeadID:      p.LeadID,
	}

	if err := s.Store.Projects().CreateProject(ctx, project); err != nil {
		return domain.Project{}, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

// ListProjectsFor applies the role-dependent visibility rule: admins see
// everything, project leads see the projects they lead.
func (s *ProjectService) ListProjectsFor(ctx context.Context, user domain.User) ([]domain.Project, error) {
	switch user.Role {
	case domain.RoleAdmin:
		return s.Store.Projects().ListProjects(ctx)
	case domain.RoleProjectLead:
		return s.Store.Projects().ListProjectsByLead(ctx, user.ID)
	default:
		return nil, nil
	}
}

// ListAssignedProjects returns the projects a developer is assigned to.
func (s *ProjectService) ListAssignedProjects(ctx context.Context, userID string) ([]domain.Project, error) {
	return s.Store.Projects().ListProjectsByDeveloper(ctx, userID)
}

func (s *ProjectService) GetProjectByID(ctx context.Context, id string) (domain.Project, error) {
	return s.Store.Projects().GetProjectByID(ctx, id)
}

func (s *ProjectService) UpdateProject(ctx context.Context, id string, p ProjectParams) (domain.Project, error) {
	project, err := s.Store.Projects().GetProjectByID(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}

	if p.Name != "" {
		project.Name = p.Name
	}
	if p.Description != "" {
		project.Description = p.Description
	}
	if !p.Deadline.IsZero() {
		project.Deadline = p.Deadline.UTC()
	}
	if p.Status != "" {
		status := domain.ProjectStatus(p.Status)
		if !status.Valid() {
			return domain.Project{}, fmt.Errorf("%w: unknown status %q", ErrInvalidProject, p.Status)
		}
		project.Status = status
	}
	if p.LeadID != "" {
		project.LeadID = p.LeadID
	}

	if len(project.Name) > maxProjectNameLen || len(project.Description) > maxProjectDescriptionLen {
		return domain.Project{}, ErrInvalidProject
	}

	if err := s.Store.Projects().UpdateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return s.Store.Projects().GetProjectByID(ctx, id)
}

func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	return s.Store.Projects().DeleteProject(ctx, id)
}

// AssignDeveloper attaches a user to a project. Assigning the same developer
// twice is a no-op.
func (s *ProjectService) AssignDeveloper(ctx context.Context, projectID, developerID string) (domain.Project, error) {
	if _, err := s.Store.Projects().GetProjectByID(ctx, projectID); err != nil {
		return domain.Project{}, err
	}
	if _, err := s.Store.Users().GetUserByID(ctx, developerID); err != nil {
		return domain.Project{}, err
	}

	if err := s.Store.Projects().AssignDeveloper(ctx, projectID, developerID); err != nil {
		return domain.Project{}, fmt.Errorf("assign developer: %w", err)
	}
	return s.Store.Projects().GetProjectByID(ctx, projectID)
}

func (s *ProjectService) RemoveDeveloper(ctx context.Context, projectID, developerID string) error {
	if _, err := s.Store.Projects().GetProjectByID(ctx, projectID); err != nil {
		return err
	}
	return s.Store.Projects().RemoveDeveloper(ctx, projectID, developerID)
}
