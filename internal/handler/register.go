package handler

import (
	"net/http"

	"roofmart/internal/service"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

func RegisterHandler(authSvc Authenticator, sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if req.Email == "" || req.Password == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email and password required"})
			return
		}

		profile, err := authSvc.Register(r.Context(), service.Registration{
			Email:    req.Email,
			Password: req.Password,
			FullName: req.FullName,
			Phone:    req.Phone,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		issueSession(w, r, sessions, profile, http.StatusCreated)
	}
}
