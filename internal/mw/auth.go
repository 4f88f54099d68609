package mw

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserCtxKey  contextKey = "user_id"
	AdminCtxKey contextKey = "admin_session"
)

// AuthMiddleware requires a valid bearer token and stores its user id in the
// request context.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, ok := claimsFromHeader(w, authHeader, jwtSecret)
			if !ok {
				return
			}

			ctx := context.WithValue(r.Context(), UserCtxKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth lets anonymous requests through but still rejects a bad token.
func OptionalAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, ok := claimsFromHeader(w, authHeader, jwtSecret)
			if !ok {
				return
			}

			ctx := context.WithValue(r.Context(), UserCtxKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func claimsFromHeader(w http.ResponseWriter, authHeader, jwtSecret string) (*tokenClaims, bool) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		http.Error(w, "invalid token format", http.StatusUnauthorized)
		return nil, false
	}

	claims, err := parseToken(jwtSecret, parts[1])
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil, false
	}
	return claims, true
}

func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserCtxKey).(string)
	return id, ok && id != ""
}

// UserIDPtr returns nil for anonymous requests.
func UserIDPtr(ctx context.Context) *string {
	if id, ok := UserIDFrom(ctx); ok {
		return &id
	}
	return nil
}
