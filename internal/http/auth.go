package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pixelforge/nexus/internal/service"
	"github.com/pixelforge/nexus/pkg/httpx"
	"github.com/pixelforge/nexus/pkg/slogx"
)

// AuthHandler serves the login, MFA and session endpoints.
type AuthHandler struct {
	AuthService *service.AuthService
	MFAService  *service.MFAService
	UserService *service.UserService

	SessionTTL    time.Duration
	SecureCookies bool
}

// HandleLogin handles POST /api/auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	result, token, err := h.AuthService.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Info("login rejected", "username", req.Username)
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if result.RequiresMFA {
		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"requiresMFA":    true,
			"challengeToken": result.ChallengeToken,
		})
		return
	}

	setSessionCookie(w, token, h.SessionTTL, h.SecureCookies)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"user": result.User.Public(),
	})
}

// HandleVerifyMFA handles POST /api/auth/verify-mfa.
func (h *AuthHandler) HandleVerifyMFA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		ChallengeToken string `json:"challengeToken"`
		Code           string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	user, token, err := h.AuthService.VerifyMFA(ctx, req.ChallengeToken, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidChallenge):
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid or expired challenge")
		case errors.Is(err, service.ErrInvalidMFACode):
			httpx.WriteError(w, http.StatusBadRequest, "Invalid MFA code")
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		default:
			log.Error("MFA verification failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	setSessionCookie(w, token, h.SessionTTL, h.SecureCookies)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"user": user.Public(),
	})
}

// HandleLogout handles POST /api/auth/logout. Safe to call without a
// session; a second logout with the same token still succeeds.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		h.AuthService.Logout(r.Context(), token)
	}
	clearSessionCookie(w, h.SecureCookies)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleMe handles GET /api/auth/me.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}

// HandleSetupMFA handles POST /api/auth/setup-mfa.
func (h *AuthHandler) HandleSetupMFA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	enrollment, err := h.MFAService.Setup(ctx, user)
	if err != nil {
		log.Error("MFA setup failed", "user_id", user.ID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"secret": enrollment.Secret,
		"qrCode": enrollment.QRCode,
	})
}

// HandleConfirmMFA handles POST /api/auth/confirm-mfa.
func (h *AuthHandler) HandleConfirmMFA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.MFAService.Confirm(ctx, user.ID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMFACode):
			httpx.WriteError(w, http.StatusBadRequest, "Invalid MFA code")
		case errors.Is(err, service.ErrMFANotPending):
			httpx.WriteError(w, http.StatusBadRequest, "MFA setup has not been started")
		default:
			log.Error("MFA confirmation failed", "user_id", user.ID, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleDisableMFA handles POST /api/auth/disable-mfa. Idempotent.
func (h *AuthHandler) HandleDisableMFA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.MFAService.Disable(ctx, user.ID); err != nil {
		log.Error("MFA disable failed", "user_id", user.ID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleChangePassword handles PUT /api/auth/change-password.
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	err := h.AuthService.ChangePassword(ctx, user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, service.ErrPasswordPolicy):
			httpx.WriteError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		default:
			log.Error("password change failed", "user_id", user.ID, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleRegister handles POST /api/auth/register. Admin only; new accounts
// are provisioned by an existing admin rather than self-signup.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
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
		switch {
		case errors.Is(err, service.ErrDuplicateIdentity):
			httpx.WriteError(w, http.StatusConflict, "Username or email already in use")
		case errors.Is(err, service.ErrInvalidRole):
			httpx.WriteError(w, http.StatusBadRequest, "Invalid role")
		case errors.Is(err, service.ErrPasswordPolicy):
			httpx.WriteError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		default:
			log.Warn("registration rejected", "err", err)
			httpx.WriteError(w, http.StatusBadRequest, "Invalid registration request")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"user": user.Public()})
}
