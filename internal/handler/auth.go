package handler

import (
	"context"
	"net/http"
	"time"

	"roofmart/internal/model"
	"roofmart/internal/mw"
	"roofmart/internal/service"
)

type Authenticator interface {
	Register(ctx context.Context, r service.Registration) (*model.Profile, error)
	Authenticate(ctx context.Context, email, password string) (*model.Profile, error)
}

// Sessions controls the tokens issued at login and registration.
type Sessions struct {
	Secret   string
	BuyerTTL time.Duration
	AdminTTL time.Duration
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Profile   *model.Profile `json:"profile"`
}

func LoginHandler(authSvc Authenticator, sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		profile, err := authSvc.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}

		issueSession(w, r, sessions, profile, http.StatusOK)
	}
}

// issueSession sets the bearer token on the response. Admin profiles get an
// admin token with the shorter admin lifetime.
func issueSession(w http.ResponseWriter, r *http.Request, sessions Sessions, profile *model.Profile, status int) {
	role, ttl := mw.RoleBuyer, sessions.BuyerTTL
	if profile.IsAdmin {
		role, ttl = mw.RoleAdmin, sessions.AdminTTL
	}

	token, exp, err := mw.IssueToken(sessions.Secret, profile.ID, role, ttl)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	writeJSON(w, status, sessionResponse{Token: token, ExpiresAt: exp, Profile: profile})
}
