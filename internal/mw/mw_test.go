package mw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := UserIDFrom(r.Context())
		w.Write([]byte(id))
	})
}

func bearer(t *testing.T, userID, role string, ttl time.Duration) string {
	t.Helper()
	tok, _, err := IssueToken(secret, userID, role, ttl)
	require.NoError(t, err)
	return "Bearer " + tok
}

func serve(h http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	h := AuthMiddleware(secret)(echoUser())

	rec := serve(h, bearer(t, "u1", RoleBuyer, time.Hour))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, bearer(t, "u1", RoleBuyer, -time.Minute)).Code)

	other, _, err := IssueToken("other-secret", "u1", RoleBuyer, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "Bearer "+other).Code)
}

func TestAuthMiddleware_RequiresExpiry(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u1"})
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)

	rec := serve(AuthMiddleware(secret)(echoUser()), "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuth(t *testing.T) {
	h := OptionalAuth(secret)(echoUser())

	rec := serve(h, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = serve(h, bearer(t, "u2", RoleBuyer, time.Hour))
	assert.Equal(t, "u2", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(h, "Bearer garbage").Code)
}

func TestRequireAdmin(t *testing.T) {
	var got bool
	h := RequireAdmin(secret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := AdminSessionFrom(r.Context())
		got = ok && s.ProfileID == "admin-1" && s.Valid(time.Now())
	}))

	assert.Equal(t, http.StatusForbidden, serve(h, bearer(t, "u1", RoleBuyer, time.Hour)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, bearer(t, "admin-1", RoleAdmin, -time.Second)).Code)

	rec := serve(h, bearer(t, "admin-1", RoleAdmin, 2*time.Hour))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got)
}

type adminFlags struct {
	admins map[string]bool
	err    error
}

func (a adminFlags) IsAdmin(_ context.Context, id string) (bool, error) {
	return a.admins[id], a.err
}

func TestRequireAdmin_RevokedAdmin(t *testing.T) {
	flags := adminFlags{admins: map[string]bool{"admin-1": true}}
	h := RequireAdmin(secret, flags)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	assert.Equal(t, http.StatusOK, serve(h, bearer(t, "admin-1", RoleAdmin, 2*time.Hour)).Code)

	// admin-2 was demoted after the token was issued
	assert.Equal(t, http.StatusForbidden, serve(h, bearer(t, "admin-2", RoleAdmin, 2*time.Hour)).Code)

	broken := RequireAdmin(secret, adminFlags{err: errors.New("db down")})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	assert.Equal(t, http.StatusInternalServerError, serve(broken, bearer(t, "admin-1", RoleAdmin, 2*time.Hour)).Code)
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(1, 2)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"))
}

func TestRateLimiter_Sweep(t *testing.T) {
	l := NewRateLimiter(1, 1)
	l.Allow("10.0.0.1")

	l.sweep(time.Now().Add(time.Hour), 30*time.Minute)

	_, ok := l.limiters.Load("10.0.0.1")
	assert.False(t, ok)
}
