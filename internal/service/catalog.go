package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"roofmart/internal/model"
	"roofmart/internal/money"
)

// CatalogService stores products, services and projects. Categories are
// restricted to the configured set.
type CatalogService struct {
	db         *sql.DB
	categories map[string]struct{}
}

func NewCatalogService(db *sql.DB, categories []string) *CatalogService {
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		set[normalizeCategory(c)] = struct{}{}
	}
	return &CatalogService{db: db, categories: set}
}

func (s *CatalogService) Categories() []string {
	out := make([]string, 0, len(s.categories))
	for c := range s.categories {
		out = append(out, c)
	}
	return out
}

func (s *CatalogService) checkCategory(c string) (string, error) {
	c = normalizeCategory(c)
	if _, ok := s.categories[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, c)
	}
	return c, nil
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

// Products

const productColumns = `id, name, description, category, price, currency, image_url, in_stock, created_at, updated_at`

func (s *CatalogService) validateProduct(p *model.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price is negative", ErrInvalidInput)
	}
	if p.Price > model.MaxUnitPrice {
		return fmt.Errorf("%w: price is too large", ErrInvalidInput)
	}
	p.Currency = strings.ToUpper(p.Currency)
	if !money.ValidCode(p.Currency) {
		return fmt.Errorf("%w: currency %q", ErrInvalidInput, p.Currency)
	}
	c, err := s.checkCategory(p.Category)
	if err != nil {
		return err
	}
	p.Category = c
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	if err := s.validateProduct(&p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.Currency, p.ImageURL, p.InStock, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return &p, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var p model.Product
	err := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Currency, &p.ImageURL, &p.InStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, category string) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE ($1 = '' OR category = $1)
		ORDER BY name ASC`, normalizeCategory(category))
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Currency, &p.ImageURL, &p.InStock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return products, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	if err := s.validateProduct(&p); err != nil {
		return nil, err
	}
	if !validID(p.ID) {
		return nil, ErrNotFound
	}
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, category = $4, price = $5, currency = $6, image_url = $7, in_stock = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.Currency, p.ImageURL, p.InStock,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return &p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	return s.deleteFrom(ctx, "products", id)
}

// Services

const offeringColumns = `id, title, description, category, image_url, created_at, updated_at`

func (s *CatalogService) validateOffering(o *model.ServiceOffering) error {
	if strings.TrimSpace(o.Title) == "" {
		return fmt.Errorf("%w: service title is required", ErrInvalidInput)
	}
	c, err := s.checkCategory(o.Category)
	if err != nil {
		return err
	}
	o.Category = c
	return nil
}

func (s *CatalogService) CreateService(ctx context.Context, o model.ServiceOffering) (*model.ServiceOffering, error) {
	if err := s.validateOffering(&o); err != nil {
		return nil, err
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO services (`+offeringColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.Title, o.Description, o.Category, o.ImageURL, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert service: %w", err)
	}
	return &o, nil
}

func (s *CatalogService) GetService(ctx context.Context, id string) (*model.ServiceOffering, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var o model.ServiceOffering
	err := s.db.QueryRowContext(ctx, `SELECT `+offeringColumns+` FROM services WHERE id = $1`, id).
		Scan(&o.ID, &o.Title, &o.Description, &o.Category, &o.ImageURL, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return &o, nil
}

func (s *CatalogService) ListServices(ctx context.Context, category string) ([]model.ServiceOffering, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+offeringColumns+` FROM services
		WHERE ($1 = '' OR category = $1)
		ORDER BY title ASC`, normalizeCategory(category))
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	var offerings []model.ServiceOffering
	for rows.Next() {
		var o model.ServiceOffering
		if err := rows.Scan(&o.ID, &o.Title, &o.Description, &o.Category, &o.ImageURL, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		offerings = append(offerings, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return offerings, nil
}

func (s *CatalogService) UpdateService(ctx context.Context, o model.ServiceOffering) (*model.ServiceOffering, error) {
	if err := s.validateOffering(&o); err != nil {
		return nil, err
	}
	if !validID(o.ID) {
		return nil, ErrNotFound
	}
	err := s.db.QueryRowContext(ctx, `
		UPDATE services SET title = $2, description = $3, category = $4, image_url = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		o.ID, o.Title, o.Description, o.Category, o.ImageURL,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update service: %w", err)
	}
	return &o, nil
}

func (s *CatalogService) DeleteService(ctx context.Context, id string) error {
	return s.deleteFrom(ctx, "services", id)
}

// Projects

const projectColumns = `id, title, description, location, category, image_url, completed_on, created_at, updated_at`

func (s *CatalogService) validateProject(p *model.Project) error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: project title is required", ErrInvalidInput)
	}
	c, err := s.checkCategory(p.Category)
	if err != nil {
		return err
	}
	p.Category = c
	return nil
}

func (s *CatalogService) CreateProject(ctx context.Context, p model.Project) (*model.Project, error) {
	if err := s.validateProject(&p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Title, p.Description, p.Location, p.Category, p.ImageURL, nullableTime(p.CompletedOn), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return &p, nil
}

func (s *CatalogService) GetProject(ctx context.Context, id string) (*model.Project, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *CatalogService) ListProjects(ctx context.Context, category string) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE ($1 = '' OR category = $1)
		ORDER BY completed_on DESC NULLS LAST, created_at DESC`, normalizeCategory(category))
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return projects, nil
}

func (s *CatalogService) UpdateProject(ctx context.Context, p model.Project) (*model.Project, error) {
	if err := s.validateProject(&p); err != nil {
		return nil, err
	}
	if !validID(p.ID) {
		return nil, ErrNotFound
	}
	err := s.db.QueryRowContext(ctx, `
		UPDATE projects
		SET title = $2, description = $3, location = $4, category = $5, image_url = $6, completed_on = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.Title, p.Description, p.Location, p.Category, p.ImageURL, nullableTime(p.CompletedOn),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	return &p, nil
}

func (s *CatalogService) DeleteProject(ctx context.Context, id string) error {
	return s.deleteFrom(ctx, "projects", id)
}

func scanProject(row rowScanner) (*model.Project, error) {
	var p model.Project
	var completed sql.NullTime
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Location, &p.Category, &p.ImageURL, &completed, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CompletedOn = timeFromNull(completed)
	return &p, nil
}

// table is a fixed name from this file.
func (s *CatalogService) deleteFrom(ctx context.Context, table, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}
