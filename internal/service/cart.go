package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"roofmart/internal/model"
)

const maxCartQuantity = 999

// CartStore keeps product quantities per cart. cache.CartStore implements it
// on Redis.
type CartStore interface {
	Items(ctx context.Context, cartID string) (map[string]int, error)
	Set(ctx context.Context, cartID, productID string, quantity int) error
	Remove(ctx context.Context, cartID, productID string) error
	Clear(ctx context.Context, cartID string) error
}

type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*model.Product, error)
}

type Checkouter interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
}

type CartLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
	InStock   bool   `json:"in_stock"`
}

type CartView struct {
	ID       string     `json:"id"`
	Lines    []CartLine `json:"lines"`
	Currency string     `json:"currency,omitempty"`
	Total    int64      `json:"total"`
}

type CartService struct {
	store    CartStore
	products ProductLookup
	checkout Checkouter
}

func NewCartService(store CartStore, products ProductLookup, checkout Checkouter) *CartService {
	return &CartService{store: store, products: products, checkout: checkout}
}

func NewCartID() string {
	return uuid.NewString()
}

func validateCartID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: cart id must be a uuid", ErrInvalidCart)
	}
	return nil
}

// View prices the cart from the catalog. Products that no longer exist are
// dropped from the view.
func (s *CartService) View(ctx context.Context, cartID string) (*CartView, error) {
	if err := validateCartID(cartID); err != nil {
		return nil, err
	}
	items, err := s.store.Items(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	view := &CartView{ID: cartID, Lines: []CartLine{}}
	for _, id := range sortedKeys(items) {
		p, err := s.products.GetProduct(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		line := CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  items[id],
			Subtotal:  p.Price * int64(items[id]),
			InStock:   p.InStock,
		}
		view.Lines = append(view.Lines, line)
		view.Total += line.Subtotal
		view.Currency = p.Currency
	}
	return view, nil
}

func (s *CartService) AddItem(ctx context.Context, cartID, productID string, quantity int) (*CartView, error) {
	if err := validateCartID(cartID); err != nil {
		return nil, err
	}
	if quantity < 1 || quantity > maxCartQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidInput, maxCartQuantity)
	}

	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.InStock {
		return nil, fmt.Errorf("%w: %s is out of stock", ErrInvalidInput, p.Name)
	}

	items, err := s.store.Items(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	for id := range items {
		if id == productID {
			continue
		}
		other, err := s.products.GetProduct(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if other.Currency != p.Currency {
			return nil, ErrMixedCurrency
		}
		break
	}

	total := items[productID] + quantity
	if total > maxCartQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidInput, maxCartQuantity)
	}
	if err := s.store.Set(ctx, cartID, productID, total); err != nil {
		return nil, fmt.Errorf("update cart: %w", err)
	}
	return s.View(ctx, cartID)
}

// SetQuantity replaces the quantity of a line; zero removes it.
func (s *CartService) SetQuantity(ctx context.Context, cartID, productID string, quantity int) (*CartView, error) {
	if quantity == 0 {
		return s.RemoveItem(ctx, cartID, productID)
	}
	if err := validateCartID(cartID); err != nil {
		return nil, err
	}
	if quantity < 0 || quantity > maxCartQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 0 and %d", ErrInvalidInput, maxCartQuantity)
	}

	items, err := s.store.Items(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if _, ok := items[productID]; !ok {
		return nil, ErrNotFound
	}
	if err := s.store.Set(ctx, cartID, productID, quantity); err != nil {
		return nil, fmt.Errorf("update cart: %w", err)
	}
	return s.View(ctx, cartID)
}

func (s *CartService) RemoveItem(ctx context.Context, cartID, productID string) (*CartView, error) {
	if err := validateCartID(cartID); err != nil {
		return nil, err
	}
	if err := s.store.Remove(ctx, cartID, productID); err != nil {
		return nil, fmt.Errorf("update cart: %w", err)
	}
	return s.View(ctx, cartID)
}

func (s *CartService) Clear(ctx context.Context, cartID string) error {
	if err := validateCartID(cartID); err != nil {
		return err
	}
	return s.store.Clear(ctx, cartID)
}

// LineItems turns the cart into priced checkout items. Every product must
// still exist, be in stock and share one currency.
func (s *CartService) LineItems(ctx context.Context, cartID string) ([]model.LineItem, string, error) {
	if err := validateCartID(cartID); err != nil {
		return nil, "", err
	}
	items, err := s.store.Items(ctx, cartID)
	if err != nil {
		return nil, "", fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, "", fmt.Errorf("%w: cart is empty", ErrInvalidCart)
	}

	var (
		lines    []model.LineItem
		currency string
	)
	for _, id := range sortedKeys(items) {
		p, err := s.products.GetProduct(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return nil, "", fmt.Errorf("%w: product %s is no longer available", ErrInvalidCart, id)
		}
		if err != nil {
			return nil, "", err
		}
		if !p.InStock {
			return nil, "", fmt.Errorf("%w: %s is out of stock", ErrInvalidCart, p.Name)
		}
		if currency != "" && p.Currency != currency {
			return nil, "", ErrMixedCurrency
		}
		currency = p.Currency

		productID := p.ID
		lines = append(lines, model.LineItem{
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  items[id],
			ProductID: &productID,
		})
	}
	return lines, currency, nil
}

// Checkout starts a payment for the cart contents and empties the cart once
// the order exists.
func (s *CartService) Checkout(ctx context.Context, cartID string, method model.PaymentMethod, buyerID *string, buyer model.Contact) (*CheckoutResult, error) {
	lines, currency, err := s.LineItems(ctx, cartID)
	if err != nil {
		return nil, err
	}

	res, err := s.checkout.Checkout(ctx, CheckoutRequest{
		Items:    lines,
		Currency: currency,
		Method:   method,
		BuyerID:  buyerID,
		Buyer:    buyer,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.Clear(ctx, cartID); err != nil {
		slog.Warn("failed to clear cart after checkout", "cart_id", cartID, "order_id", res.OrderID, "error", err)
	}
	return res, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
