package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"roofmart/internal/model"
)

type Inquiries interface {
	Create(ctx context.Context, in model.ContactInquiry) (*model.ContactInquiry, error)
	List(ctx context.Context, handled *bool) ([]model.ContactInquiry, error)
	Get(ctx context.Context, id string) (*model.ContactInquiry, error)
	MarkHandled(ctx context.Context, id string, handled bool) error
	Delete(ctx context.Context, id string) error
}

func CreateInquiryHandler(inq Inquiries) http.HandlerFunc {
	return createHandler(inq.Create)
}

func ListInquiriesHandler(inq Inquiries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var handled *bool
		if v := r.URL.Query().Get("handled"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "handled must be true or false"})
				return
			}
			handled = &b
		}

		list, err := inq.List(r.Context(), handled)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if list == nil {
			list = []model.ContactInquiry{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type handledRequest struct {
	Handled bool `json:"handled"`
}

func MarkInquiryHandler(inq Inquiries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req handledRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := inq.MarkHandled(r.Context(), chi.URLParam(r, "id"), req.Handled); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, actionResponse{Success: true})
	}
}

func mountInquiryAdmin(r chi.Router, inq Inquiries) {
	r.Get("/inquiries", ListInquiriesHandler(inq))
	r.Get("/inquiries/{id}", getHandler(inq.Get, "id"))
	r.Put("/inquiries/{id}/handled", MarkInquiryHandler(inq))
	r.Delete("/inquiries/{id}", deleteHandler(inq.Delete))
}
