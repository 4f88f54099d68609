package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"roofmart/internal/model"
	"roofmart/internal/payment"
	"roofmart/internal/service"
)

const maxBodyBytes = 1 << 20

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

// errorStatus maps service errors to a status code and a message that is
// safe to show to the caller.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, payment.ErrConfiguration):
		return http.StatusServiceUnavailable, "payment provider not available"
	case errors.Is(err, payment.ErrProvider):
		return http.StatusBadGateway, "payment provider error, please try again"
	case errors.Is(err, payment.ErrSignatureMismatch):
		return http.StatusBadRequest, "payment verification failed"
	case errors.Is(err, model.ErrInvalidStateTransition):
		return http.StatusConflict, "order is not awaiting confirmation"
	case errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid login or password"
	case errors.Is(err, service.ErrAdminSession):
		return http.StatusUnauthorized, "admin session expired"
	case errors.Is(err, service.ErrLoginExists):
		return http.StatusConflict, "login already exists"
	case errors.Is(err, service.ErrStatusNotAllowed),
		errors.Is(err, service.ErrOptimisticLock),
		errors.Is(err, service.ErrInsufficientStock):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvalidCheckout),
		errors.Is(err, service.ErrInvalidVerification),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidCart),
		errors.Is(err, service.ErrMixedCurrency):
		return http.StatusUnprocessableEntity, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return false
	}
	return true
}
