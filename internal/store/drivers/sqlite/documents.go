package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pixelforge/nexus/internal/domain"
)

type documentsRepo struct {
	db dbtx
}

const documentColumns = `id, project_id, stored_name, original_name, content_type, size, uploaded_by, uploaded_at`

func scanDocument(row interface{ Scan(...any) error }) (domain.Document, error) {
	var (
		d          domain.Document
		uploadedBy sql.NullString
	)
	err := row.Scan(&d.ID, &d.ProjectID, &d.StoredName, &d.OriginalName,
		&d.ContentType, &d.Size, &uploadedBy, &d.UploadedAt)
	if err != nil {
		return domain.Document{}, err
	}
	if uploadedBy.Valid {
		d.UploadedBy = uploadedBy.String
	}
	return d, nil
}

func (r *documentsRepo) CreateDocument(ctx context.Context, d domain.Document) error {
	var uploadedBy sql.NullString
	if d.UploadedBy != "" {
		uploadedBy = sql.NullString{String: d.UploadedBy, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (id, project_id, stored_name, original_name, content_type, size, uploaded_by, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectID, d.StoredName, d.OriginalName, d.ContentType, d.Size,
		uploadedBy, time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *documentsRepo) GetDocumentByID(ctx context.Context, id string) (domain.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if err != nil {
		return domain.Document{}, mapNotFound(err)
	}
	return d, nil
}

func (r *documentsRepo) ListProjectDocuments(ctx context.Context, projectID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE project_id = ? ORDER BY uploaded_at DESC`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *documentsRepo) DeleteDocument(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
