package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "cesizen.test", TTL: time.Hour}

func TestIssueAndParseRoundTrip(t *testing.T) {
	token, expires, err := Issue(Claims{Subject: "user-1", Email: "a@b.c", Role: RoleAdmin}, testConfig, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "a@b.c", claims.Email)
	require.Equal(t, RoleAdmin, claims.Role)
	require.WithinDuration(t, expires, claims.ExpiresAt, time.Second)
}

func TestParseRejectsWrongIssuerAndExpiry(t *testing.T) {
	token, _, err := Issue(Claims{Subject: "user-1", Role: RoleUser}, testConfig, time.Now())
	require.NoError(t, err)

	_, err = Parse(token, Config{Secret: testConfig.Secret, Issuer: "someone-else"})
	require.ErrorIs(t, err, ErrInvalidToken)

	expired, _, err := Issue(Claims{Subject: "user-1", Role: RoleUser}, testConfig, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = Parse(expired, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = Parse("   ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestRoleRanking(t *testing.T) {
	require.True(t, RoleSuperAdmin.AtLeast(RoleAdmin))
	require.True(t, RoleAdmin.AtLeast(RoleAdmin))
	require.False(t, RoleUser.AtLeast(RoleAdmin))
	require.False(t, Role("ghost").AtLeast(RoleUser))

	role, ok := ParseRole(" Admin ")
	require.True(t, ok)
	require.Equal(t, RoleAdmin, role)

	var nilClaims *Claims
	require.False(t, nilClaims.HasRole(RoleUser))
}

func TestMiddlewareAttachesClaimsFromHeaderOrFallback(t *testing.T) {
	token, _, err := Issue(Claims{Subject: "user-9", Role: RoleUser}, testConfig, time.Now())
	require.NoError(t, err)

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	mw := NewMiddleware(testConfig, nil, func(r *http.Request) string {
		if c, err := r.Cookie("session"); err == nil {
			return c.Value
		}
		return ""
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, "user-9", seen.Subject)

	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	rr = httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, seen)
}

func TestMiddlewareAnonymousAndInvalid(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := FromContext(r.Context())
		require.False(t, ok)
	})
	mw := NewMiddleware(testConfig, nil, nil)

	rr := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)

	called = false
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rr, req)
	require.False(t, called)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
