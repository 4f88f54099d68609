package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roofmart/internal/model"
)

type Catalog interface {
	Categories() []string

	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, category string) ([]model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	CreateService(ctx context.Context, o model.ServiceOffering) (*model.ServiceOffering, error)
	GetService(ctx context.Context, id string) (*model.ServiceOffering, error)
	ListServices(ctx context.Context, category string) ([]model.ServiceOffering, error)
	UpdateService(ctx context.Context, o model.ServiceOffering) (*model.ServiceOffering, error)
	DeleteService(ctx context.Context, id string) error

	CreateProject(ctx context.Context, p model.Project) (*model.Project, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, category string) ([]model.Project, error)
	UpdateProject(ctx context.Context, p model.Project) (*model.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

func CategoriesHandler(c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c.Categories())
	}
}

// mountCatalog registers the public read routes.
func mountCatalog(r chi.Router, c Catalog) {
	r.Get("/api/categories", CategoriesHandler(c))
	r.Get("/api/products", listHandler(c.ListProducts))
	r.Get("/api/products/{id}", getHandler(c.GetProduct, "id"))
	r.Get("/api/services", listHandler(c.ListServices))
	r.Get("/api/services/{id}", getHandler(c.GetService, "id"))
	r.Get("/api/projects", listHandler(c.ListProjects))
	r.Get("/api/projects/{id}", getHandler(c.GetProject, "id"))
}

// mountCatalogAdmin registers the write routes under /api/admin.
func mountCatalogAdmin(r chi.Router, c Catalog) {
	r.Post("/products", createHandler(c.CreateProduct))
	r.Put("/products/{id}", updateHandler(c.UpdateProduct, func(p *model.Product, id string) { p.ID = id }))
	r.Delete("/products/{id}", deleteHandler(c.DeleteProduct))

	r.Post("/services", createHandler(c.CreateService))
	r.Put("/services/{id}", updateHandler(c.UpdateService, func(o *model.ServiceOffering, id string) { o.ID = id }))
	r.Delete("/services/{id}", deleteHandler(c.DeleteService))

	r.Post("/projects", createHandler(c.CreateProject))
	r.Put("/projects/{id}", updateHandler(c.UpdateProject, func(p *model.Project, id string) { p.ID = id }))
	r.Delete("/projects/{id}", deleteHandler(c.DeleteProject))
}
