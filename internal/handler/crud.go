package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Generic handlers for the catalog and back-office tables. Each takes the
// service method it exposes.

func listHandler[T any](list func(ctx context.Context, category string) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r.Context(), r.URL.Query().Get("category"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func getHandler[T any](get func(ctx context.Context, id string) (*T, error), param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := get(r.Context(), chi.URLParam(r, param))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func createHandler[T any](create func(ctx context.Context, v T) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var v T
		if !decodeJSON(w, r, &v) {
			return
		}
		item, err := create(r.Context(), v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

// updateHandler overwrites the decoded body's id with the one in the path.
func updateHandler[T any](update func(ctx context.Context, v T) (*T, error), setID func(*T, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var v T
		if !decodeJSON(w, r, &v) {
			return
		}
		setID(&v, chi.URLParam(r, "id"))
		item, err := update(r.Context(), v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func deleteHandler(del func(ctx context.Context, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := del(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
