package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"roofmart/internal/model"
	"roofmart/internal/mw"
	"roofmart/internal/service"
)

type OrderAdmin interface {
	Get(ctx context.Context, id string) (*model.Order, error)
	List(ctx context.Context, f service.OrderFilter) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) error
	Delete(ctx context.Context, id string) error
}

type Confirmations interface {
	Confirm(ctx context.Context, admin model.AdminSession, orderID, notes string) (*model.Order, error)
	Reject(ctx context.Context, admin model.AdminSession, orderID, notes string) (*model.Order, error)
}

func AdminListOrdersHandler(orders OrderAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := service.OrderFilter{
			Status:       model.OrderStatus(q.Get("status")),
			Confirmation: model.ConfirmationStatus(q.Get("confirmation")),
			Method:       model.PaymentMethod(q.Get("method")),
		}
		if f.Status != "" && !f.Status.Valid() ||
			f.Confirmation != "" && !f.Confirmation.Valid() ||
			f.Method != "" && !f.Method.Valid() {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid filter"})
			return
		}
		f.Limit, _ = strconv.Atoi(q.Get("limit"))
		f.Offset, _ = strconv.Atoi(q.Get("offset"))
		if f.Offset < 0 {
			f.Offset = 0
		}

		list, err := orders.List(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if list == nil {
			list = []model.Order{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func AdminGetOrderHandler(orders OrderAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := orders.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

type decisionRequest struct {
	Notes string `json:"notes"`
}

func ConfirmPaymentHandler(conf Confirmations) http.HandlerFunc {
	return decisionHandler(conf.Confirm, "payment confirmed")
}

func RejectPaymentHandler(conf Confirmations) http.HandlerFunc {
	return decisionHandler(conf.Reject, "payment rejected")
}

type decideFunc func(ctx context.Context, admin model.AdminSession, orderID, notes string) (*model.Order, error)

func decisionHandler(decide decideFunc, done string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := mw.AdminSessionFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, actionResponse{Success: false, Message: "admin session required"})
			return
		}

		var req decisionRequest
		if r.ContentLength != 0 {
			if !decodeJSON(w, r, &req) {
				return
			}
		}

		if _, err := decide(r.Context(), admin, chi.URLParam(r, "id"), strings.TrimSpace(req.Notes)); err != nil {
			status, msg := errorStatus(err)
			if status == http.StatusInternalServerError {
				writeError(w, r, err)
				return
			}
			writeJSON(w, status, actionResponse{Success: false, Message: msg})
			return
		}
		writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: done})
	}
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

func UpdateOrderStatusHandler(orders OrderAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		id := chi.URLParam(r, "id")
		if err := orders.UpdateStatus(r.Context(), id, req.Status); err != nil {
			writeError(w, r, err)
			return
		}
		o, err := orders.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func DeleteOrderHandler(orders OrderAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
