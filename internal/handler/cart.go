package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roofmart/internal/model"
	"roofmart/internal/mw"
	"roofmart/internal/service"
)

type Carts interface {
	View(ctx context.Context, cartID string) (*service.CartView, error)
	AddItem(ctx context.Context, cartID, productID string, quantity int) (*service.CartView, error)
	SetQuantity(ctx context.Context, cartID, productID string, quantity int) (*service.CartView, error)
	RemoveItem(ctx context.Context, cartID, productID string) (*service.CartView, error)
	Clear(ctx context.Context, cartID string) error
	Checkout(ctx context.Context, cartID string, method model.PaymentMethod, buyerID *string, buyer model.Contact) (*service.CheckoutResult, error)
}

func NewCartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"cart_id": service.NewCartID()})
	}
}

func ViewCartHandler(carts Carts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := carts.View(r.Context(), chi.URLParam(r, "cartID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func AddCartItemHandler(carts Carts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addItemRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		view, err := carts.AddItem(r.Context(), chi.URLParam(r, "cartID"), req.ProductID, req.Quantity)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func SetCartItemHandler(carts Carts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quantityRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		view, err := carts.SetQuantity(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "productID"), req.Quantity)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func RemoveCartItemHandler(carts Carts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := carts.RemoveItem(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "productID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func ClearCartHandler(carts Carts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := carts.Clear(r.Context(), chi.URLParam(r, "cartID")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type cartCheckoutRequest struct {
	Method model.PaymentMethod `json:"payment_method"`
	Buyer  model.Contact       `json:"buyer"`
}

func CartCheckoutHandler(carts Carts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cartCheckoutRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := carts.Checkout(r.Context(), chi.URLParam(r, "cartID"), req.Method, mw.UserIDPtr(r.Context()), req.Buyer)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}
