package auth

import (
	"net/http"
	"strings"
)

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// TokenSource extracts a token from a request when no Authorization header is present.
type TokenSource func(r *http.Request) string

// RejectFunc writes the response for a request carrying an unusable token.
type RejectFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware attaches claims for requests carrying a valid token. Requests without any token pass
// through anonymously; route guards decide whether anonymity is acceptable.
type Middleware struct {
	Config   Config
	Skipper  Skipper
	Fallback TokenSource
	Reject   RejectFunc
}

// NewMiddleware constructs a middleware with optional skipper and fallback token source.
func NewMiddleware(cfg Config, skipper Skipper, fallback TokenSource) Middleware {
	return Middleware{Config: cfg, Skipper: skipper, Fallback: fallback}
}

// Wrap wraps an http.Handler with authentication.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := m.extract(r)
		if err != nil {
			m.reject(w, r, err)
			return
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := Parse(token, m.Config)
		if err != nil {
			m.reject(w, r, err)
			return
		}
		ctx := WithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) extract(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header != "" {
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			return "", ErrInvalidToken
		}
		return strings.TrimSpace(header[len("Bearer "):]), nil
	}
	if m.Fallback != nil {
		return m.Fallback(r), nil
	}
	return "", nil
}

func (m Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	if m.Reject != nil {
		m.Reject(w, r, err)
		return
	}
	http.Error(w, err.Error(), http.StatusUnauthorized)
}
