package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roofmart/internal/model"
	"roofmart/internal/service"
)

type Inventory interface {
	Add(ctx context.Context, sku, name, location string, quantity int) (*model.InventoryItem, error)
	List(ctx context.Context) ([]model.InventoryItem, error)
	Get(ctx context.Context, sku string) (*model.InventoryItem, error)
	Adjust(ctx context.Context, sku string, delta, expectedVersion int) (*model.InventoryItem, error)
}

func ListInventoryHandler(inv Inventory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := inv.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if items == nil {
			items = []model.InventoryItem{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

type addInventoryRequest struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Quantity int    `json:"quantity"`
}

func AddInventoryHandler(inv Inventory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addInventoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		item, err := inv.Add(r.Context(), req.SKU, req.Name, req.Location, req.Quantity)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

type adjustRequest struct {
	Delta           int  `json:"delta"`
	ExpectedVersion *int `json:"expected_version"`
}

func AdjustInventoryHandler(inv Inventory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adjustRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		version := service.AnyVersion
		if req.ExpectedVersion != nil {
			version = *req.ExpectedVersion
		}
		item, err := inv.Adjust(r.Context(), chi.URLParam(r, "sku"), req.Delta, version)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func mountInventoryAdmin(r chi.Router, inv Inventory) {
	r.Get("/inventory", ListInventoryHandler(inv))
	r.Post("/inventory", AddInventoryHandler(inv))
	r.Get("/inventory/{sku}", getHandler(inv.Get, "sku"))
	r.Patch("/inventory/{sku}", AdjustInventoryHandler(inv))
}
