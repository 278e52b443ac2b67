// Package api exposes the CesiZen REST API.
package api

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"example.com/cesizen/internal/auth"
	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/listing"
	"example.com/cesizen/internal/media"
	"example.com/cesizen/internal/observability"
	platformauth "example.com/cesizen/internal/platform/auth"
)

// Services groups the domain services the handlers call.
type Services struct {
	Users      *domain.UserService
	Content    *domain.ContentService
	Diagnostic *domain.DiagnosticService
	Info       *domain.InfoService
	Reports    *domain.ReportService
	Breathing  *domain.BreathingService
}

// Options carries the HTTP-facing collaborators.
type Options struct {
	Tokens      auth.Config
	Sessions    *auth.SessionManager
	Limiter     *auth.LoginLimiter
	Media       *media.LocalStore
	CORSOrigins []string
	Logger      logrus.FieldLogger
}

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	svc      Services
	tokens   auth.Config
	sessions *auth.SessionManager
	limiter  *auth.LoginLimiter
	media    *media.LocalStore
	origins  []string
	logger   logrus.FieldLogger
	guard    auth.Guard
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler builds a Handler.
func NewHandler(svc Services, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = auth.NewLoginLimiter(10)
	}
	return &Handler{
		svc:      svc,
		tokens:   opts.Tokens,
		sessions: opts.Sessions,
		limiter:  limiter,
		media:    opts.Media,
		origins:  opts.CORSOrigins,
		logger:   logger,
		guard:    auth.NewGuard(logger),
		validate: newValidator(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Router builds the complete HTTP handler: CORS, request logging, authentication and routes.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	})
	r.Use(observability.RequestLogger(h.logger, routeTemplate))
	r.Use(auth.NewMiddleware(h.tokens, h.sessions, h.logger).WithUsers(h.svc.Users).Wrap)

	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if h.media != nil {
		r.PathPrefix("/uploads/").Handler(inertFiles(http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.media.Dir()))))).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	h.registerAuth(api)
	h.registerUsers(api)
	h.registerContent(api)
	h.registerDiagnostic(api)
	h.registerInfo(api)
	h.registerReports(api)
	h.registerBreathing(api)
	h.registerMedia(api)

	return auth.CORS(h.origins)(r)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return ""
}

// inertFiles keeps browsers from sniffing or executing uploaded content.
func inertFiles(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "sandbox; default-src 'none'")
		next.ServeHTTP(w, r)
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) authed(fn http.HandlerFunc) http.Handler {
	return h.guard.RequireAuth(fn)
}

func (h *Handler) admin(fn http.HandlerFunc) http.Handler {
	return h.guard.RequireRole(platformauth.RoleAdmin)(fn)
}

func actor(r *http.Request) *domain.Actor {
	return auth.ActorFrom(r.Context())
}

func query(r *http.Request) listing.Query {
	return listing.ParseQuery(r.URL.Query())
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
