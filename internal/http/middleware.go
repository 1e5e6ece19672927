package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/internal/service"
	"github.com/pixelforge/nexus/pkg/httpx"
	"github.com/pixelforge/nexus/pkg/slogx"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "accessToken"

// sessionToken extracts the raw session token from the cookie, falling back
// to an Authorization bearer header for non-browser clients.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionMiddleware authenticates the request against the session token and
// injects the resolved user into the request context. The user, including
// its role, is loaded fresh from the store on every request.
func SessionMiddleware(auth *service.AuthService, secureCookies bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			user, err := auth.ResolveSession(r.Context(), token)
			if err != nil {
				// Only a rejected session clears the cookie; a store
				// failure is not the client's fault and must not look
				// like an expired login.
				if errors.Is(err, service.ErrInvalidSession) {
					slogx.FromContext(r.Context()).Debug("session rejected", "err", err)
					clearSessionCookie(w, secureCookies)
					httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
					return
				}
				slogx.FromContext(r.Context()).Error("session resolution failed", "err", err)
				httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireRole authorizes the request only when the authenticated user's role
// is in the allowed set. It must run after SessionMiddleware.
func RequireRole(roles ...domain.Role) httpx.Middleware {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		if role.Valid() {
			allowed[role] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if _, ok := allowed[user.Role]; !ok {
				httpx.WriteError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
