package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pixelforge/nexus/internal/domain"
	"github.com/pixelforge/nexus/internal/service"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/pkg/httpx"
	"github.com/pixelforge/nexus/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion  string
	startTime     time.Time
	logger        *slog.Logger
	sessionTTL    time.Duration
	secureCookies bool

	store           store.Store
	AuthService     *service.AuthService
	MFAService      *service.MFAService
	UserService     *service.UserService
	ProjectService  *service.ProjectService
	DocumentService *service.DocumentService
}

func NewRouter(
	buildVersion string,
	sessionTTL time.Duration,
	secureCookies bool,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		logger:        logger,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
		store:         st,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerProjects()
	r.registerDocuments()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// session authenticates the request; roles, when given, further restrict it.
func (r *Router) session(h http.Handler, roles ...domain.Role) http.Handler {
	mws := []httpx.Middleware{SessionMiddleware(r.AuthService, r.secureCookies)}
	if len(roles) > 0 {
		mws = append(mws, RequireRole(roles...))
	}
	return httpx.Chain(h, mws...)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService:   r.AuthService,
		MFAService:    r.MFAService,
		UserService:   r.UserService,
		SessionTTL:    r.sessionTTL,
		SecureCookies: r.secureCookies,
	}

	// Credential submission endpoints get the strict limit to slow brute
	// force; everything session-bound is limited leniently.
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/verify-mfa",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyMFA),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /api/auth/me",
		r.session(httpx.Chain(http.HandlerFunc(h.HandleMe),
			httpx.RateLimitByIP(httpx.LenientLimit),
		)),
	)
	r.Mux.Handle("POST /api/auth/setup-mfa",
		r.session(httpx.Chain(http.HandlerFunc(h.HandleSetupMFA),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		)),
	)
	r.Mux.Handle("POST /api/auth/confirm-mfa",
		r.session(httpx.Chain(http.HandlerFunc(h.HandleConfirmMFA),
			httpx.RateLimitByIP(httpx.StrictLimit),
		)),
	)
	r.Mux.Handle("POST /api/auth/disable-mfa",
		r.session(httpx.Chain(http.HandlerFunc(h.HandleDisableMFA),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		)),
	)
	r.Mux.Handle("PUT /api/auth/change-password",
		r.session(httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		)),
	)
	r.Mux.Handle("POST /api/auth/register",
		r.session(httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		), domain.RoleAdmin),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	r.Mux.Handle("GET /api/users",
		r.session(http.HandlerFunc(h.HandleList), domain.RoleAdmin))
	r.Mux.Handle("POST /api/users",
		r.session(http.HandlerFunc(h.HandleCreate), domain.RoleAdmin))
	r.Mux.Handle("PUT /api/users/{id}",
		r.session(http.HandlerFunc(h.HandleUpdate), domain.RoleAdmin))
	r.Mux.Handle("DELETE /api/users/{id}",
		r.session(http.HandlerFunc(h.HandleDelete), domain.RoleAdmin))
}

func (r *Router) registerProjects() {
	h := &ProjectsHandler{ProjectService: r.ProjectService}

	r.Mux.Handle("GET /api/projects",
		r.session(http.HandlerFunc(h.HandleList), domain.RoleAdmin, domain.RoleProjectLead))
	r.Mux.Handle("GET /api/projects/my",
		r.session(http.HandlerFunc(h.HandleListAssigned)))
	r.Mux.Handle("POST /api/projects",
		r.session(http.HandlerFunc(h.HandleCreate), domain.RoleAdmin, domain.RoleProjectLead))
	r.Mux.Handle("GET /api/projects/{id}",
		r.session(http.HandlerFunc(h.HandleGet)))
	r.Mux.Handle("PUT /api/projects/{id}",
		r.session(http.HandlerFunc(h.HandleUpdate), domain.RoleAdmin, domain.RoleProjectLead))
	r.Mux.Handle("DELETE /api/projects/{id}",
		r.session(http.HandlerFunc(h.HandleDelete), domain.RoleAdmin))
	r.Mux.Handle("POST /api/projects/{id}/assign",
		r.session(http.HandlerFunc(h.HandleAssign), domain.RoleAdmin, domain.RoleProjectLead))
	r.Mux.Handle("DELETE /api/projects/{id}/assign/{devId}",
		r.session(http.HandlerFunc(h.HandleUnassign), domain.RoleAdmin, domain.RoleProjectLead))
}

func (r *Router) registerDocuments() {
	h := &DocumentsHandler{DocumentService: r.DocumentService}

	r.Mux.Handle("POST /api/documents/upload/{pid}",
		r.session(http.HandlerFunc(h.HandleUpload), domain.RoleAdmin, domain.RoleProjectLead))
	r.Mux.Handle("GET /api/documents/project/{pid}",
		r.session(http.HandlerFunc(h.HandleListByProject)))
	r.Mux.Handle("GET /api/documents/download/{id}",
		r.session(http.HandlerFunc(h.HandleDownload)))
	r.Mux.Handle("DELETE /api/documents/{id}",
		r.session(http.HandlerFunc(h.HandleDelete), domain.RoleAdmin, domain.RoleProjectLead))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
