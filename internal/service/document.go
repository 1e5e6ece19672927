package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/pkg/cryptox"
	"github.com/pixelforge/nexus/pkg/idx"
	"github.com/pixelforge/nexus/pkg/slogx"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds the size limit")
)

// MaxDocumentSize caps uploads at 5 MiB.
const MaxDocumentSize = 5 << 20

// allowedContentTypes mirrors the upload allowlist of the original system.
var allowedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/png":       {},
	"image/jpeg":      {},
	"text/plain":      {},
}

// DocumentService stores uploaded files on disk under Dir with random hex
// names and tracks their metadata in the store.
type DocumentService struct {
	Store store.Store
	Dir   string
}

// Upload validates type and size, writes the file to disk and records it.
// The project must exist; the stored name never reveals the original one.
func (s *DocumentService) Upload(ctx context.Context, projectID, uploaderID, originalName, contentType string, size int64, body io.Reader) (domain.Document, error) {
	// Strip any multipart parameters like "; charset=utf-8"
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if _, ok := allowedContentTypes[contentType]; !ok {
		return domain.Document{}, ErrUnsupportedFileType
	}
	if size > MaxDocumentSize {
		return domain.Document{}, ErrFileTooLarge
	}

	if _, err := s.Store.Projects().GetProjectByID(ctx, projectID); err != nil {
		return domain.Document{}, err
	}

	name, err := cryptox.GenerateHexToken(16)
	if err != nil {
		return domain.Document{}, err
	}
	storedName := name + strings.ToLower(filepath.Ext(originalName))

	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return domain.Document{}, fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(s.Dir, storedName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return domain.Document{}, fmt.Errorf("create file: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(body, MaxDocumentSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > MaxDocumentSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrFileTooLarge) {
			return domain.Document{}, err
		}
		return domain.Document{}, fmt.Errorf("write file: %w", err)
	}

	doc := domain.Document{
		ID:           idx.New().String(),
		ProjectID:    projectID,
		StoredName:   storedName,
		OriginalName: originalName,
		ContentType:  contentType,
		Size:         written,
		UploadedBy:   uploaderID,
	}

	if err := s.Store.Documents().CreateDocument(ctx, doc); err != nil {
		_ = os.Remove(path)
		return domain.Document{}, fmt.Errorf("record document: %w", err)
	}
	return doc, nil
}

func (s *DocumentService) ListProjectDocuments(ctx context.Context, projectID string) ([]domain.Document, error) {
	return s.Store.Documents().ListProjectDocuments(ctx, projectID)
}

// Resolve returns the document metadata and its on-disk path for download.
func (s *DocumentService) Resolve(ctx context.Context, id string) (domain.Document, string, error) {
	doc, err := s.Store.Documents().GetDocumentByID(ctx, id)
	if err != nil {
		return domain.Document{}, "", err
	}
	return doc, filepath.Join(s.Dir, doc.StoredName), nil
}

// Delete removes the record and then the file. A missing file is logged but
// not an error: the record is the source of truth.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Store.Documents().GetDocumentByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.Documents().DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.Dir, doc.StoredName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		slogx.FromContext(ctx).Warn("failed to remove document file", "document_id", id, "err", err)
	}
	return nil
}
