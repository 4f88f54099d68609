package service

import (
	"context"
	"crypto/hmac"
	"sync"
	"sync/atomic"
	"time"

	"roofmart/internal/model"
	"roofmart/internal/payment"
)

// memOrders is an in-memory OrderStore with the same compare-and-swap
// semantics as the SQL transition.
type memOrders struct {
	mu      sync.Mutex
	orders  map[string]*model.Order
	applied atomic.Int32
	// buyers that were deleted after their session was issued
	missingBuyers map[string]bool
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[string]*model.Order), missingBuyers: make(map[string]bool)}
}

func (m *memOrders) Create(_ context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrders) Get(_ context.Context, id string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) find(match func(*model.Order) bool) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if match(o) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (m *memOrders) GetByRazorpayOrder(_ context.Context, id string) (*model.Order, error) {
	return m.find(func(o *model.Order) bool { return o.RazorpayOrderID == id })
}

func (m *memOrders) GetByStripeSession(_ context.Context, id string) (*model.Order, error) {
	return m.find(func(o *model.Order) bool { return o.StripeSessionID == id })
}

func (m *memOrders) Transition(_ context.Context, id string, t model.Trigger, p model.TransitionPatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return false, nil
	}
	next, err := model.NextConfirmation(o.ConfirmationStatus, t)
	if err != nil {
		return false, nil
	}
	o.Apply(next, p)
	m.applied.Add(1)
	return true, nil
}

func (m *memOrders) CancelUnpaid(_ context.Context, id string, at time.Time, note string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != model.OrderStatusPending || o.ConfirmationStatus != model.ConfirmationNotSubmitted {
		return false, nil
	}
	o.Status = model.OrderStatusCancelled
	o.Notes = model.AppendNote(o.Notes, note)
	o.UpdatedAt = at
	return true, nil
}

func (m *memOrders) BuyerExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.missingBuyers[id], nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type fakeRazorpay struct {
	secret  string
	orderID string
	err     error
	calls   int
}

func (f *fakeRazorpay) KeyID() string { return "rzp_test_key" }

func (f *fakeRazorpay) CreateOrder(_ context.Context, req payment.RazorpayOrderRequest) (*payment.RazorpayOrder, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &payment.RazorpayOrder{
		KeyID:    f.KeyID(),
		OrderID:  f.orderID,
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
	}, nil
}

func (f *fakeRazorpay) VerifySignature(orderID, paymentID, signature string) error {
	expected := payment.SignRazorpay(f.secret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return payment.ErrSignatureMismatch
	}
	return nil
}

type fakeStripe struct {
	mu       sync.Mutex
	sessions map[string]*payment.StripeSession
	nextID   string
	err      error
	lookups  int
}

func newFakeStripe() *fakeStripe {
	return &fakeStripe{sessions: make(map[string]*payment.StripeSession), nextID: "cs_test_1"}
}

func (f *fakeStripe) CreateCheckoutSession(_ context.Context, req payment.StripeSessionRequest) (*payment.StripeSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s := &payment.StripeSession{
		ID:                f.nextID,
		URL:               "https://checkout.stripe.test/" + f.nextID,
		ClientReferenceID: req.OrderID,
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeStripe) GetSession(_ context.Context, id string) (*payment.StripeSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, payment.ErrProvider
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStripe) markPaid(id, intent string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id].Paid = true
	f.sessions[id].PaymentIntentID = intent
}

func (f *fakeStripe) expire(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id].Expired = true
}

type memCart struct {
	mu    sync.Mutex
	carts map[string]map[string]int
}

func newMemCart() *memCart {
	return &memCart{carts: make(map[string]map[string]int)}
}

func (m *memCart) Items(_ context.Context, cartID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for k, v := range m.carts[cartID] {
		out[k] = v
	}
	return out, nil
}

func (m *memCart) Set(_ context.Context, cartID, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.carts[cartID] == nil {
		m.carts[cartID] = make(map[string]int)
	}
	m.carts[cartID][productID] = quantity
	return nil
}

func (m *memCart) Remove(_ context.Context, cartID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts[cartID], productID)
	return nil
}

func (m *memCart) Clear(_ context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, cartID)
	return nil
}

type memProducts map[string]*model.Product

func (m memProducts) GetProduct(_ context.Context, id string) (*model.Product, error) {
	p, ok := m[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}
