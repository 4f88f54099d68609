package mw

import (
	"context"
	"log/slog"
	"net/http"

	"roofmart/internal/model"
)

// AdminChecker reports whether a profile still holds the admin flag.
type AdminChecker interface {
	IsAdmin(ctx context.Context, profileID string) (bool, error)
}

// RequireAdmin accepts only admin tokens and hands the admin session to the
// handlers through the context. With a non-nil admins every request also
// re-checks the profile, so a revoked admin loses access before the token
// expires.
func RequireAdmin(jwtSecret string, admins AdminChecker) func(http.Handler) http.Handler {
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
			if claims.Role != RoleAdmin {
				http.Error(w, "admin access required", http.StatusForbidden)
				return
			}
			if admins != nil {
				ok, err := admins.IsAdmin(r.Context(), claims.UserID)
				if err != nil {
					slog.Error("admin lookup failed", "profile_id", claims.UserID, "error", err)
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				if !ok {
					http.Error(w, "admin access required", http.StatusForbidden)
					return
				}
			}

			session := model.AdminSession{ProfileID: claims.UserID, ExpiresAt: claims.ExpiresAt}
			ctx := context.WithValue(r.Context(), UserCtxKey, claims.UserID)
			ctx = context.WithValue(ctx, AdminCtxKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func AdminSessionFrom(ctx context.Context) (model.AdminSession, bool) {
	s, ok := ctx.Value(AdminCtxKey).(model.AdminSession)
	return s, ok
}
