package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pixelforge/nexus/internal/domain"
)

type projectsRepo struct {
	db dbtx
}

const projectColumns = `id, name, description, deadline, status, lead_id, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (domain.Project, error) {
	var (
		p      domain.Project
		status string
		leadID sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Deadline, &status, &leadID,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Project{}, err
	}
	p.Status = domain.ProjectStatus(status)
	if leadID.Valid {
		p.LeadID = leadID.String
	}
	return p, nil
}

func (r *projectsRepo) loadDevelopers(ctx context.Context, p *domain.Project) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT developer_id FROM project_developers WHERE project_id = ? ORDER BY developer_id`,
		p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		p.Developers = append(p.Developers, id)
	}
	return rows.Err()
}

func (r *projectsRepo) CreateProject(ctx context.Context, p domain.Project) error {
	now := time.Now().UTC()
	var leadID sql.NullString
	if p.LeadID != "" {
		leadID = sql.NullString{String: p.LeadID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, deadline, status, lead_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Deadline.UTC(), string(p.Status), leadID, now, now,
	)
	return mapConstraint(err)
}

func (r *projectsRepo) GetProjectByID(ctx context.Context, id string) (domain.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err != nil {
		return domain.Project{}, mapNotFound(err)
	}
	if err := r.loadDevelopers(ctx, &p); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (r *projectsRepo) listWhere(ctx context.Context, query string, args ...any) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range projects {
		if err := r.loadDevelopers(ctx, &projects[i]); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func (r *projectsRepo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return r.listWhere(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
}

func (r *projectsRepo) ListProjectsByLead(ctx context.Context, leadID string) ([]domain.Project, error) {
	return r.listWhere(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE lead_id = ? ORDER BY created_at DESC`,
		leadID)
}

func (r *projectsRepo) ListProjectsByDeveloper(ctx context.Context, developerID string) ([]domain.Project, error) {
	return r.listWhere(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE id IN (SELECT project_id FROM project_developers WHERE developer_id = ?)
		ORDER BY created_at DESC`,
		developerID)
}

func (r *projectsRepo) UpdateProject(ctx context.Context, p domain.Project) error {
	var leadID sql.NullString
	if p.LeadID != "" {
		leadID = sql.NullString{String: p.LeadID, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, description = ?, deadline = ?, status = ?, lead_id = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Deadline.UTC(), string(p.Status), leadID, time.Now().UTC(), p.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *projectsRepo) DeleteProject(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *projectsRepo) AssignDeveloper(ctx context.Context, projectID, developerID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_developers (project_id, developer_id) VALUES (?, ?)
		ON CONFLICT (project_id, developer_id) DO NOTHING`,
		projectID, developerID,
	)
	return err
}

func (r *projectsRepo) RemoveDeveloper(ctx context.Context, projectID, developerID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM project_developers WHERE project_id = ? AND developer_id = ?`,
		projectID, developerID,
	)
	return err
}
