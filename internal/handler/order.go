package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roofmart/internal/model"
	"roofmart/internal/mw"
	"roofmart/internal/service"
)

type OrderReader interface {
	Get(ctx context.Context, id string) (*model.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]model.Order, error)
}

func ListOrdersHandler(orders OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.UserIDFrom(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		list, err := orders.ListByBuyer(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if len(list) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GetOrderHandler serves a buyer's own order; other buyers' orders look
// missing.
func GetOrderHandler(orders OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.UserIDFrom(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		o, err := orders.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if o.BuyerID == nil || *o.BuyerID != userID {
			writeError(w, r, service.ErrOrderNotFound)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

type submitPaymentRequest struct {
	PaymentReference string `json:"payment_reference"`
}

func SubmitPaymentHandler(payments Payments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitPaymentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		o, err := payments.SubmitManualPayment(r.Context(), chi.URLParam(r, "id"), mw.UserIDPtr(r.Context()), req.PaymentReference)
		if err != nil {
			if errors.Is(err, model.ErrInvalidStateTransition) {
				writeJSON(w, http.StatusConflict, errorResponse{Error: "payment already submitted or not an offline order"})
				return
			}
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}
