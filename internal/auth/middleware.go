package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/observability"
	platformauth "example.com/cesizen/internal/platform/auth"
)

// UserLookup loads the account a token was issued for.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Middleware attaches claims from the bearer header or the session cookie.
type Middleware struct {
	inner  platformauth.Middleware
	users  UserLookup
	logger logrus.FieldLogger
}

// NewMiddleware constructs Middleware with validation config. A nil sessions disables the cookie fallback.
func NewMiddleware(cfg Config, sessions *SessionManager, logger logrus.FieldLogger) Middleware {
	skipper := func(r *http.Request) bool {
		switch r.URL.Path {
		case "/healthz", "/metrics", "/api/auth/logout":
			return true
		}
		return false
	}
	var fallback platformauth.TokenSource
	if sessions != nil {
		fallback = sessions.Token
	}
	inner := platformauth.NewMiddleware(cfg, skipper, fallback)
	inner.Reject = func(w http.ResponseWriter, r *http.Request, err error) {
		detail := "invalid access token"
		if errors.Is(err, platformauth.ErrMissingToken) {
			detail = "missing access token"
		}
		reject(logger, w, r, http.StatusUnauthorized, "unauthorized", detail)
	}
	return Middleware{inner: inner, logger: logger}
}

// WithUsers makes every authenticated request reload its account, so role changes, deactivation and
// deletion take effect before the token expires.
func (m Middleware) WithUsers(users UserLookup) Middleware {
	m.users = users
	return m
}

// Wrap attaches authentication handling to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	if m.users == nil {
		return m.inner.Wrap(next)
	}
	return m.inner.Wrap(m.refresh(next))
}

// refresh replaces the token's role with the stored one. Missing accounts get 401, inactive ones 403.
func (m Middleware) refresh(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		user, err := m.users.GetUser(r.Context(), claims.Subject)
		switch {
		case errors.Is(err, domain.ErrNotFound) || (err == nil && user == nil):
			reject(m.logger, w, r, http.StatusUnauthorized, "unauthorized", "account no longer exists")
			return
		case err != nil:
			if m.logger != nil {
				m.logger.WithError(err).WithField("user_id", claims.Subject).Error("load account")
			}
			writeProblem(w, http.StatusInternalServerError, "internal", "internal error")
			return
		case !user.IsActive:
			reject(m.logger, w, r, http.StatusForbidden, "account_inactive", "account is deactivated")
			return
		}
		current := *claims
		current.Role = user.Role
		current.Email = user.Email
		next.ServeHTTP(w, r.WithContext(platformauth.WithClaims(r.Context(), &current)))
	})
}

// Guard rejects requests lacking the required identity.
type Guard struct {
	logger logrus.FieldLogger
}

// NewGuard constructs a Guard.
func NewGuard(logger logrus.FieldLogger) Guard {
	return Guard{logger: logger}
}

// RequireAuth answers 401 for anonymous requests.
func (g Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			reject(g.logger, w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 401 for anonymous requests and 403 when the caller ranks below min.
func (g Guard) RequireRole(min platformauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := FromContext(r.Context())
			if !ok {
				reject(g.logger, w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			if !claims.HasRole(min) {
				reject(g.logger, w, r, http.StatusForbidden, "forbidden", "role "+string(min)+" required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(logger logrus.FieldLogger, w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	observability.RecordAuthRejection(status)
	if logger != nil {
		fields := logrus.Fields{"path": r.URL.Path, "method": r.Method, "status": status, "reason": detail}
		if claims, ok := FromContext(r.Context()); ok {
			fields["user_id"] = claims.Subject
		}
		logger.WithFields(fields).Warn("auth rejected")
	}
	writeProblem(w, status, code, detail)
}
