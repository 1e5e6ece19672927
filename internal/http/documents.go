package http

import (
	"errors"
	"mime"
	"net/http"

	"github.com/pixelforge/nexus/internal/service"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/pkg/httpx"
	"github.com/pixelforge/nexus/pkg/slogx"
)

// documentFormField is the multipart field carrying the uploaded file.
const documentFormField = "document"

// DocumentsHandler serves document upload, listing, download and deletion.
type DocumentsHandler struct {
	DocumentService *service.DocumentService
}

// HandleUpload handles POST /api/documents/upload/{pid}.
func (h *DocumentsHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	// Hard cap on the request body so oversized uploads fail fast.
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxDocumentSize+1<<20)

	file, header, err := r.FormFile(documentFormField)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Missing document file")
		return
	}
	defer file.Close()

	doc, err := h.DocumentService.Upload(ctx,
		r.PathValue("pid"),
		user.ID,
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
		file,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFileType):
			httpx.WriteError(w, http.StatusBadRequest, "Invalid file type")
		case errors.Is(err, service.ErrFileTooLarge):
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, "File exceeds the 5 MiB limit")
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "Project not found")
		default:
			log.Error("document upload failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"document": doc})
}

// HandleListByProject handles GET /api/documents/project/{pid}.
func (h *DocumentsHandler) HandleListByProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.DocumentService.ListProjectDocuments(ctx, r.PathValue("pid"))
	if err != nil {
		slogx.FromContext(ctx).Error("list documents failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// HandleDownload handles GET /api/documents/download/{id}. The file is
// served under its original name, never its on-disk name.
func (h *DocumentsHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doc, path, err := h.DocumentService.Resolve(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "Document not found")
			return
		}
		slogx.FromContext(ctx).Error("document lookup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": doc.OriginalName,
	})
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Type", doc.ContentType)
	http.ServeFile(w, r, path)
}

// HandleDelete handles DELETE /api/documents/{id}.
func (h *DocumentsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.DocumentService.Delete(ctx, r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "Document not found")
			return
		}
		slogx.FromContext(ctx).Error("document delete failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
