package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roofmart/internal/model"
	"roofmart/internal/service"
)

const catalogYAML = `
products:
  - name: Colour-coated sheet 0.5mm
    category: metal roofing
    price: 45000
    currency: INR
    image_url: /img/sheet.jpg
  - name: Ridge cap
    category: accessories
    price: 1200
    currency: INR
    in_stock: false
services:
  - title: Leak inspection
    category: waterproofing
projects:
  - title: Warehouse re-roof
    location: Pune
    category: metal roofing
    completed_on: "2024-03-01"
`

func TestParseCatalog(t *testing.T) {
	entries, err := parseCatalog(strings.NewReader(catalogYAML))
	require.NoError(t, err)

	require.Len(t, entries.Products, 2)
	assert.Equal(t, "Colour-coated sheet 0.5mm", entries.Products[0].Name)
	assert.Equal(t, int64(45000), entries.Products[0].Price)
	assert.Equal(t, "/img/sheet.jpg", entries.Products[0].ImageURL)
	assert.True(t, entries.Products[0].InStock)
	assert.False(t, entries.Products[1].InStock)

	require.Len(t, entries.Services, 1)
	assert.Equal(t, "waterproofing", entries.Services[0].Category)

	require.Len(t, entries.Projects, 1)
	require.NotNil(t, entries.Projects[0].CompletedOn)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *entries.Projects[0].CompletedOn)
}

func TestParseCatalog_Empty(t *testing.T) {
	entries, err := parseCatalog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries.Products)
}

func TestParseCatalog_BadDate(t *testing.T) {
	_, err := parseCatalog(strings.NewReader("projects:\n  - title: x\n    completed_on: \"March\"\n"))
	assert.Error(t, err)
}

type recordingCatalog struct {
	products []string
	services []string
	projects []string
	failOn   string
}

func (r *recordingCatalog) CreateProduct(_ context.Context, p model.Product) (*model.Product, error) {
	if p.Name == r.failOn {
		return nil, service.ErrInvalidCategory
	}
	r.products = append(r.products, p.Name)
	return &p, nil
}

func (r *recordingCatalog) CreateService(_ context.Context, o model.ServiceOffering) (*model.ServiceOffering, error) {
	r.services = append(r.services, o.Title)
	return &o, nil
}

func (r *recordingCatalog) CreateProject(_ context.Context, p model.Project) (*model.Project, error) {
	r.projects = append(r.projects, p.Title)
	return &p, nil
}

func TestLoadCatalog(t *testing.T) {
	entries, err := parseCatalog(strings.NewReader(catalogYAML))
	require.NoError(t, err)

	rec := &recordingCatalog{}
	require.NoError(t, loadCatalog(context.Background(), rec, entries))
	assert.Equal(t, []string{"Colour-coated sheet 0.5mm", "Ridge cap"}, rec.products)
	assert.Equal(t, []string{"Leak inspection"}, rec.services)
	assert.Equal(t, []string{"Warehouse re-roof"}, rec.projects)
}

func TestLoadCatalog_StopsOnError(t *testing.T) {
	entries, err := parseCatalog(strings.NewReader(catalogYAML))
	require.NoError(t, err)

	rec := &recordingCatalog{failOn: "Ridge cap"}
	err = loadCatalog(context.Background(), rec, entries)
	assert.True(t, errors.Is(err, service.ErrInvalidCategory))
	assert.Contains(t, err.Error(), "Ridge cap")
	assert.Empty(t, rec.services)
}

func TestRevenueRange(t *testing.T) {
	rng, err := revenueRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.NotNil(t, rng.From)
	require.NotNil(t, rng.To)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *rng.From)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), *rng.To)

	rng, err = revenueRange("", "")
	require.NoError(t, err)
	assert.Nil(t, rng.From)
	assert.Nil(t, rng.To)

	_, err = revenueRange("01/01/2024", "")
	assert.Error(t, err)
}

func TestPrintRevenue(t *testing.T) {
	rep := &service.RevenueReport{
		DisplayCurrency: "INR",
		Total:           150050,
		Count:           2,
		Average:         75025,
		ByMethod: map[model.PaymentMethod]service.MethodRevenue{
			model.PaymentMethodStripe:   {Count: 1, Total: 100000},
			model.PaymentMethodRazorpay: {Count: 1, Total: 50050},
		},
	}

	var buf bytes.Buffer
	printRevenue(&buf, rep, []string{"USD"})
	out := buf.String()

	assert.Contains(t, out, "Confirmed orders: 2")
	assert.Contains(t, out, "1500.50 INR")
	assert.Contains(t, out, "750.25 INR")
	assert.Contains(t, out, "Converted from:   USD")
	assert.Less(t, strings.Index(out, "razorpay"), strings.Index(out, "stripe"))
}
