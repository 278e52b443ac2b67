package auth

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const tokenKey = "access_token"

// SessionManager keeps the access token in a signed, HttpOnly session cookie so browser clients can
// authenticate with credentials instead of a bearer header.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
}

// NewSessionManager constructs a SessionManager. secret signs the cookie.
func NewSessionManager(secret []byte, name string, ttl time.Duration, secure bool) *SessionManager {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store, name: name}
}

// Save stores token in the session cookie.
func (m *SessionManager) Save(w http.ResponseWriter, r *http.Request, token string) error {
	session, _ := m.store.Get(r, m.name)
	session.Values[tokenKey] = token
	return session.Save(r, w)
}

// Token returns the token held by the request's session cookie, or "" when there is none.
func (m *SessionManager) Token(r *http.Request) string {
	session, err := m.store.Get(r, m.name)
	if err != nil {
		return ""
	}
	token, _ := session.Values[tokenKey].(string)
	return token
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, m.name)
	delete(session.Values, tokenKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
