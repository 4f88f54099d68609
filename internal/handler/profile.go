package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roofmart/internal/model"
	"roofmart/internal/mw"
)

type Profiles interface {
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, id, fullName, phone string) (*model.Profile, error)
	SetAdmin(ctx context.Context, id string, admin bool) error
	DeleteProfile(ctx context.Context, id string) error
}

func MeHandler(profiles Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.UserIDFrom(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		p, err := profiles.GetProfile(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

type profileUpdate struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

func UpdateMeHandler(profiles Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.UserIDFrom(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req profileUpdate
		if !decodeJSON(w, r, &req) {
			return
		}
		p, err := profiles.UpdateProfile(r.Context(), userID, req.FullName, req.Phone)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func ListProfilesHandler(profiles Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := profiles.ListProfiles(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if list == nil {
			list = []model.Profile{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type setAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// SetAdminHandler refuses to let an admin demote themselves.
func SetAdminHandler(profiles Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setAdminRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		id := chi.URLParam(r, "id")
		if self, _ := mw.UserIDFrom(r.Context()); self == id && !req.IsAdmin {
			writeJSON(w, http.StatusConflict, actionResponse{Success: false, Message: "cannot remove your own admin access"})
			return
		}
		if err := profiles.SetAdmin(r.Context(), id, req.IsAdmin); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, actionResponse{Success: true})
	}
}

func mountProfileAdmin(r chi.Router, profiles Profiles) {
	r.Get("/profiles", ListProfilesHandler(profiles))
	r.Get("/profiles/{id}", getHandler(profiles.GetProfile, "id"))
	r.Put("/profiles/{id}/admin", SetAdminHandler(profiles))
	r.Delete("/profiles/{id}", deleteHandler(profiles.DeleteProfile))
}
