package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/internal/service"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/pkg/httpx"
	"github.com/pixelforge/nexus/pkg/slogx"
)

// UsersHandler serves the admin account-management endpoints.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleList handles GET /api/users.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.UserService.ListUsers(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("list users failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	sanitized := make([]domain.PublicUser, 0, len(users))
	for _, u := range users {
		sanitized = append(sanitized, u.Public())
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"users": sanitized})
}

// HandleCreate handles POST /api/users.
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	user, err := h.UserService.CreateUser(ctx, service.CreateUserParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeUserError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"user": user.Public()})
}

// HandleUpdate handles PUT /api/users/{id}.
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	id := r.PathValue("id")

	var req struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Role     *string `json:"role"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	user, err := h.UserService.UpdateUser(ctx, id, service.UpdateUserParams{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		writeUserError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}

// HandleDelete handles DELETE /api/users/{id}.
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if caller, ok := UserFromContext(ctx); ok && caller.ID == id {
		httpx.WriteError(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}

	if err := h.UserService.DeleteUser(ctx, id); err != nil {
		writeUserError(w, slogx.FromContext(ctx), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeUserError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrDuplicateIdentity):
		httpx.WriteError(w, http.StatusConflict, "Username or email already in use")
	case errors.Is(err, service.ErrInvalidRole):
		httpx.WriteError(w, http.StatusBadRequest, "Invalid role")
	case errors.Is(err, service.ErrPasswordPolicy):
		httpx.WriteError(w, http.StatusBadRequest, "Password must be at least 8 characters")
	default:
		log.Error("user operation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
