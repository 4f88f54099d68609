package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"roofmart/internal/database"
	"roofmart/internal/model"
	"roofmart/internal/service"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load products, services and projects from a YAML file",
	Long: `Load catalog entries from a YAML file into the database.

Example file:
  products:
    - name: Colour-coated sheet 0.5mm
      category: metal roofing
      price: 45000
      currency: INR
      in_stock: true
  services:
    - title: Leak inspection
      category: waterproofing
  projects:
    - title: Warehouse re-roof
      category: metal roofing
      completed_on: 2024-03-01`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "catalog.yaml", "catalog YAML file")
}

type seedProduct struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Price       int64  `yaml:"price"`
	Currency    string `yaml:"currency"`
	ImageURL    string `yaml:"image_url"`
	InStock     *bool  `yaml:"in_stock"`
}

type seedService struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	ImageURL    string `yaml:"image_url"`
}

type seedProject struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Location    string `yaml:"location"`
	Category    string `yaml:"category"`
	ImageURL    string `yaml:"image_url"`
	CompletedOn string `yaml:"completed_on"`
}

type seedCatalog struct {
	Products []seedProduct `yaml:"products"`
	Services []seedService `yaml:"services"`
	Projects []seedProject `yaml:"projects"`
}

type catalogEntries struct {
	Products []model.Product
	Services []model.ServiceOffering
	Projects []model.Project
}

func parseCatalog(r io.Reader) (*catalogEntries, error) {
	var raw seedCatalog
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	out := &catalogEntries{}
	for _, p := range raw.Products {
		inStock := true
		if p.InStock != nil {
			inStock = *p.InStock
		}
		out.Products = append(out.Products, model.Product{
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			Price:       p.Price,
			Currency:    p.Currency,
			ImageURL:    p.ImageURL,
			InStock:     inStock,
		})
	}
	for _, s := range raw.Services {
		out.Services = append(out.Services, model.ServiceOffering{
			Title:       s.Title,
			Description: s.Description,
			Category:    s.Category,
			ImageURL:    s.ImageURL,
		})
	}
	for i, p := range raw.Projects {
		proj := model.Project{
			Title:       p.Title,
			Description: p.Description,
			Location:    p.Location,
			Category:    p.Category,
			ImageURL:    p.ImageURL,
		}
		if p.CompletedOn != "" {
			t, err := time.Parse(time.DateOnly, p.CompletedOn)
			if err != nil {
				return nil, fmt.Errorf("project %d completed_on: %w", i, err)
			}
			proj.CompletedOn = &t
		}
		out.Projects = append(out.Projects, proj)
	}
	return out, nil
}

type catalogWriter interface {
	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	CreateService(ctx context.Context, o model.ServiceOffering) (*model.ServiceOffering, error)
	CreateProject(ctx context.Context, p model.Project) (*model.Project, error)
}

// loadCatalog stops at the first invalid entry; entries before it stay written.
func loadCatalog(ctx context.Context, w catalogWriter, entries *catalogEntries) error {
	for _, p := range entries.Products {
		if _, err := w.CreateProduct(ctx, p); err != nil {
			return fmt.Errorf("product %q: %w", p.Name, err)
		}
	}
	for _, s := range entries.Services {
		if _, err := w.CreateService(ctx, s); err != nil {
			return fmt.Errorf("service %q: %w", s.Title, err)
		}
	}
	for _, p := range entries.Projects {
		if _, err := w.CreateProject(ctx, p); err != nil {
			return fmt.Errorf("project %q: %w", p.Title, err)
		}
	}
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := os.Open(seedFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", seedFile, err)
	}
	defer f.Close()

	entries, err := parseCatalog(f)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openDB(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)

	if err := loadCatalog(cmd.Context(), service.NewCatalogService(db, cfg.Categories), entries); err != nil {
		return err
	}

	slog.Info("catalog seeded",
		"products", len(entries.Products),
		"services", len(entries.Services),
		"projects", len(entries.Projects))
	return nil
}
