package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/internal/service"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/pkg/httpx"
	"github.com/pixelforge/nexus/pkg/slogx"
)

// ProjectsHandler serves the project CRUD and assignment endpoints.
type ProjectsHandler struct {
	ProjectService *service.ProjectService
}

type projectRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
	Status      string    `json:"status"`
	Lead        string    `json:"lead"`
}

// HandleList handles GET /api/projects. Admins see every project, leads
// see the projects they lead.
func (h *ProjectsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	projects, err := h.ProjectService.ListProjectsFor(ctx, user)
	if err != nil {
		slogx.FromContext(ctx).Error("list projects failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// HandleListAssigned handles GET /api/projects/my, the developer view of
// projects assigned to the caller.
func (h *ProjectsHandler) HandleListAssigned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	projects, err := h.ProjectService.ListAssignedProjects(ctx, user.ID)
	if err != nil {
		slogx.FromContext(ctx).Error("list assigned projects failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// HandleCreate handles POST /api/projects. A project lead always becomes
// the lead of a project they create.
func (h *ProjectsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	lead := req.Lead
	if user.Role != domain.RoleAdmin || lead == "" {
		lead = user.ID
	}

	project, err := h.ProjectService.CreateProject(ctx, service.ProjectParams{
		Name:        req.Name,
		Description: req.Description,
		Deadline:    req.Deadline,
		Status:      req.Status,
		LeadID:      lead,
	})
	if err != nil {
		writeProjectError(w, ctx, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"project": project})
}

// HandleGet handles GET /api/projects/{id}.
func (h *ProjectsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	project, err := h.ProjectService.GetProjectByID(ctx, r.PathValue("id"))
	if err != nil {
		writeProjectError(w, ctx, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"project": project})
}

// HandleUpdate handles PUT /api/projects/{id}. A lead may only update
// projects they lead.
func (h *ProjectsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !h.canManage(ctx, w, user, id) {
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	project, err := h.ProjectService.UpdateProject(ctx, id, service.ProjectParams{
		Name:        req.Name,
		Description: req.Description,
		Deadline:    req.Deadline,
		Status:      req.Status,
		LeadID:      req.Lead,
	})
	if err != nil {
		writeProjectError(w, ctx, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"project": project})
}

// HandleDelete handles DELETE /api/projects/{id}.
func (h *ProjectsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.ProjectService.DeleteProject(ctx, r.PathValue("id")); err != nil {
		writeProjectError(w, ctx, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAssign handles POST /api/projects/{id}/assign.
func (h *ProjectsHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !h.canManage(ctx, w, user, id) {
		return
	}

	var req struct {
		DeveloperID string `json:"developerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.DeveloperID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "developerId is required")
		return
	}

	project, err := h.ProjectService.AssignDeveloper(ctx, id, req.DeveloperID)
	if err != nil {
		writeProjectError(w, ctx, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"project": project})
}

// HandleUnassign handles DELETE /api/projects/{id}/assign/{devId}.
func (h *ProjectsHandler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !h.canManage(ctx, w, user, id) {
		return
	}

	if err := h.ProjectService.RemoveDeveloper(ctx, id, r.PathValue("devId")); err != nil {
		writeProjectError(w, ctx, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// canManage enforces lead ownership: admins manage any project, leads only
// their own. Writes the error response and returns false when denied.
func (h *ProjectsHandler) canManage(ctx context.Context, w http.ResponseWriter, user domain.User, projectID string) bool {
	if user.Role == domain.RoleAdmin {
		return true
	}

	project, err := h.ProjectService.GetProjectByID(ctx, projectID)
	if err != nil {
		writeProjectError(w, ctx, err)
		return false
	}
	if project.LeadID != user.ID {
		httpx.WriteError(w, http.StatusForbidden, "Insufficient permissions")
		return false
	}
	return true
}

func writeProjectError(w http.ResponseWriter, ctx context.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Project not found")
	case errors.Is(err, service.ErrInvalidProject):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		slogx.FromContext(ctx).Error("project operation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
