package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"example.com/cesizen/internal/domain"
	platformauth "example.com/cesizen/internal/platform/auth"
)

var testCfg = Config{Secret: "secret", Issuer: "cesizen.test", TTL: time.Hour}

func issue(t *testing.T, role platformauth.Role) string {
	t.Helper()
	token, _, err := platformauth.Issue(platformauth.Claims{Subject: "user-1", Email: "u@x.io", Role: role}, testCfg, time.Now())
	require.NoError(t, err)
	return token
}

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestGuardsRejectAnonymousAndUnderprivileged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	guard := NewGuard(logger)
	mw := NewMiddleware(testCfg, nil, logger)
	admin := mw.Wrap(guard.RequireRole(platformauth.RoleAdmin)(http.HandlerFunc(ok)))

	rr := httptest.NewRecorder()
	admin.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, platformauth.RoleUser))
	rr = httptest.NewRecorder()
	admin.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, platformauth.RoleSuperAdmin))
	rr = httptest.NewRecorder()
	admin.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, hook.AllEntries(), 2)
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestInvalidTokenIsRejectedWithJSON(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h := NewMiddleware(testCfg, nil, logger).Wrap(http.HandlerFunc(ok))
	req := httptest.NewRequest(http.MethodGet, "/api/resources", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t, `{"type":"unauthorized","detail":"invalid access token"}`, rr.Body.String())
}

func TestSessionCookieCarriesToken(t *testing.T) {
	sessions := NewSessionManager([]byte("0123456789abcdef0123456789abcdef"), "cesizen_session", time.Hour, false)
	token := issue(t, platformauth.RoleUser)

	rr := httptest.NewRecorder()
	require.NoError(t, sessions.Save(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil), token))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.True(t, cookies[0].HttpOnly)

	var seen string
	logger, _ := test.NewNullLogger()
	h := NewMiddleware(testCfg, sessions, logger).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ActorFrom(r.Context()).ID
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "user-1", seen)

	rr = httptest.NewRecorder()
	require.NoError(t, sessions.Clear(rr, req))
	require.Less(t, rr.Result().Cookies()[0].MaxAge, 0)
}

func TestLoginLimiter(t *testing.T) {
	limiter := NewLoginLimiter(2)
	h := limiter.Wrap(http.HandlerFunc(ok))
	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	require.Equal(t, []int{200, 200, 429}, codes)
	require.True(t, limiter.Allow("10.0.0.2"))
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:4200"})(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodOptions, "/api/resources", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/resources", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

type userMap map[string]domain.User

func (m userMap) GetUser(_ context.Context, id string) (*domain.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func TestStoredAccountOverridesTokenRole(t *testing.T) {
	logger, _ := test.NewNullLogger()
	users := userMap{"user-1": {ID: "user-1", Email: "u@x.io", Role: platformauth.RoleAdmin, IsActive: true}}
	h := NewMiddleware(testCfg, nil, logger).WithUsers(users).Wrap(
		NewGuard(logger).RequireRole(platformauth.RoleAdmin)(http.HandlerFunc(ok)))
	token := issue(t, platformauth.RoleAdmin)

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}
	require.Equal(t, http.StatusOK, call().Code)

	users["user-1"] = domain.User{ID: "user-1", Role: platformauth.RoleUser, IsActive: true}
	require.Equal(t, http.StatusForbidden, call().Code)

	users["user-1"] = domain.User{ID: "user-1", Role: platformauth.RoleAdmin, IsActive: false}
	rr := call()
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "account_inactive")

	delete(users, "user-1")
	require.Equal(t, http.StatusUnauthorized, call().Code)
}

func TestLogoutSkipsAccountCheck(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h := NewMiddleware(testCfg, nil, logger).WithUsers(userMap{}).Wrap(http.HandlerFunc(ok))
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, platformauth.RoleUser))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
