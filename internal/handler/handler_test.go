package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roofmart/internal/model"
	"roofmart/internal/money"
	"roofmart/internal/mw"
	"roofmart/internal/payment"
	"roofmart/internal/service"
)

const testSecret = "handler-secret"

type fakePayments struct {
	lastCheckout *service.CheckoutRequest
	checkoutErr  error
	verifyErr    error
	verifyResult *service.VerifyResult
	stripeID     string
	submitBuyer  *string
}

func (f *fakePayments) Checkout(_ context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error) {
	f.lastCheckout = &req
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	total, err := model.Total(req.Items)
	if err != nil {
		return nil, err
	}
	return &service.CheckoutResult{OrderID: "order-1", Method: req.Method, Amount: total, Currency: req.Currency}, nil
}

func (f *fakePayments) VerifyRazorpay(_ context.Context, in service.RazorpayVerification) (*service.VerifyResult, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyResult, nil
}

func (f *fakePayments) VerifyStripe(_ context.Context, sessionID string) (*service.VerifyResult, error) {
	f.stripeID = sessionID
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyResult, nil
}

func (f *fakePayments) SubmitManualPayment(_ context.Context, orderID string, buyerID *string, reference string) (*model.Order, error) {
	f.submitBuyer = buyerID
	return &model.Order{ID: orderID, PaymentReference: reference, ConfirmationStatus: model.ConfirmationPending}, nil
}

type fakeConfirmations struct {
	err     error
	admin   model.AdminSession
	orderID string
	notes   string
}

func (f *fakeConfirmations) Confirm(_ context.Context, admin model.AdminSession, orderID, notes string) (*model.Order, error) {
	f.admin, f.orderID, f.notes = admin, orderID, notes
	if f.err != nil {
		return nil, f.err
	}
	return &model.Order{ID: orderID, ConfirmationStatus: model.ConfirmationConfirmed}, nil
}

func (f *fakeConfirmations) Reject(ctx context.Context, admin model.AdminSession, orderID, notes string) (*model.Order, error) {
	return f.Confirm(ctx, admin, orderID, notes)
}

type fakeOrders struct {
	orders map[string]*model.Order
}

func (f *fakeOrders) Get(_ context.Context, id string) (*model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, service.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrders) ListByBuyer(_ context.Context, buyerID string) ([]model.Order, error) {
	var out []model.Order
	for _, o := range f.orders {
		if o.BuyerID != nil && *o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) List(context.Context, service.OrderFilter) ([]model.Order, error) {
	return nil, nil
}

func (f *fakeOrders) UpdateStatus(context.Context, string, model.OrderStatus) error { return nil }

func (f *fakeOrders) Delete(context.Context, string) error { return nil }

type fakeRevenue struct {
	rng service.RevenueRange
}

func (f *fakeRevenue) Report(_ context.Context, rng service.RevenueRange) (*service.RevenueReport, error) {
	f.rng = rng
	return &service.RevenueReport{DisplayCurrency: "INR", ByMethod: map[model.PaymentMethod]service.MethodRevenue{}}, nil
}

type testServer struct {
	handler  http.Handler
	payments *fakePayments
	conf     *fakeConfirmations
	orders   *fakeOrders
	revenue  *fakeRevenue
}

// newTestServer wires the real router. Services that need a database are
// constructed with a nil db and only hit on routes these tests avoid.
func newTestServer(t *testing.T, opts ...func(*Deps)) *testServer {
	t.Helper()
	buyer := "buyer-1"
	ts := &testServer{
		payments: &fakePayments{verifyResult: &service.VerifyResult{OrderID: "order-1", Verified: true, Status: model.ConfirmationConfirmed}},
		conf:     &fakeConfirmations{},
		orders: &fakeOrders{orders: map[string]*model.Order{
			"mine":   {ID: "mine", BuyerID: &buyer},
			"guests": {ID: "guests"},
		}},
		revenue: &fakeRevenue{},
	}
	auth := service.NewAuthService(nil)
	deps := Deps{
		Sessions:       Sessions{Secret: testSecret, BuyerTTL: time.Hour, AdminTTL: 2 * time.Hour},
		AllowedOrigins: []string{"*"},
		Limiter:        mw.NewRateLimiter(100, 100),
		Auth:           auth,
		Profiles:       auth,
		Payments:       ts.payments,
		Confirmations:  ts.conf,
		Orders:         ts.orders,
		Revenue:        ts.revenue,
		Catalog:        service.NewCatalogService(nil, []string{"gutters"}),
		Inquiries:      service.NewInquiryService(nil),
		Inventory:      service.NewInventoryService(nil),
		Health:         map[string]HealthCheck{"db": func(context.Context) error { return nil }},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	ts.handler = NewRouter(deps)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, _, err := mw.IssueToken(testSecret, userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

const validCheckout = `{"items":[{"name":"Sheet","unit_price":500,"quantity":2}],"currency":"INR","payment_method":"razorpay"}`

func TestCheckoutHandler(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/checkout", validCheckout, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res service.CheckoutResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, int64(1000), res.Amount)
	assert.Nil(t, ts.payments.lastCheckout.BuyerID)

	rec = ts.do(t, http.MethodPost, "/api/checkout", validCheckout, token(t, "buyer-1", mw.RoleBuyer))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, ts.payments.lastCheckout.BuyerID)
	assert.Equal(t, "buyer-1", *ts.payments.lastCheckout.BuyerID)
}

func TestCheckoutHandler_SchemaRejects(t *testing.T) {
	ts := newTestServer(t)

	bodies := []string{
		`{"items":[],"currency":"INR","payment_method":"razorpay"}`,
		`{"items":[{"name":"Sheet","unit_price":500,"quantity":0}],"currency":"INR","payment_method":"razorpay"}`,
		`{"items":[{"name":"Sheet","unit_price":5.5,"quantity":1}],"currency":"INR","payment_method":"razorpay"}`,
		`{"items":[{"name":"Sheet","unit_price":500,"quantity":1}],"currency":"RUPEE","payment_method":"razorpay"}`,
		`{"items":[{"name":"Sheet","unit_price":500,"quantity":1}],"currency":"INR","payment_method":"cash"}`,
	}
	for _, body := range bodies {
		ts.payments.lastCheckout = nil
		rec := ts.do(t, http.MethodPost, "/api/checkout", body, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)
		assert.Nil(t, ts.payments.lastCheckout, body)
	}

	rec := ts.do(t, http.MethodPost, "/api/checkout", `{not json`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCheckoutHandler_ProviderErrors(t *testing.T) {
	ts := newTestServer(t)

	ts.payments.checkoutErr = payment.ErrConfiguration
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, http.MethodPost, "/api/checkout", validCheckout, "").Code)

	ts.payments.checkoutErr = payment.ErrProvider
	rec := ts.do(t, http.MethodPost, "/api/checkout", validCheckout, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "please try again")
}

func TestRazorpayVerifyHandler(t *testing.T) {
	ts := newTestServer(t)
	body := `{"razorpay_order_id":"O1","razorpay_payment_id":"P1","razorpay_signature":"deadbeef"}`

	rec := ts.do(t, http.MethodPost, "/api/payments/razorpay/verify", body, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"verified":true`)

	ts.payments.verifyErr = payment.ErrSignatureMismatch
	rec = ts.do(t, http.MethodPost, "/api/payments/razorpay/verify", body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "payment verification failed")
	assert.NotContains(t, rec.Body.String(), "deadbeef")
}

func TestStripeVerifyHandler(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/payments/stripe/verify?session_id=cs_1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cs_1", ts.payments.stripeID)

	rec = ts.do(t, http.MethodPost, "/api/payments/stripe/verify", `{"session_id":"cs_2"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cs_2", ts.payments.stripeID)
}

func TestSubmitPaymentHandler(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/orders/o1/submit-payment", `{"payment_reference":"UTR1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, ts.payments.submitBuyer)

	rec = ts.do(t, http.MethodPost, "/api/orders/o1/submit-payment", `{"payment_reference":"UTR1"}`, token(t, "buyer-1", mw.RoleBuyer))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ts.payments.submitBuyer)
	assert.Equal(t, "buyer-1", *ts.payments.submitBuyer)
}

func TestBuyerOrders(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/user/orders", "", "").Code)

	rec := ts.do(t, http.MethodGet, "/api/user/orders", "", token(t, "buyer-1", mw.RoleBuyer))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"mine"`)

	rec = ts.do(t, http.MethodGet, "/api/user/orders", "", token(t, "buyer-2", mw.RoleBuyer))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/user/orders/mine", "", token(t, "buyer-2", mw.RoleBuyer))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/user/orders/guests", "", token(t, "buyer-1", mw.RoleBuyer))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminConfirm(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/admin/orders/o1/confirm", `{"notes":"checked"}`, token(t, "buyer-1", mw.RoleBuyer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/admin/orders/o1/confirm", `{"notes":" checked "}`, token(t, "admin-1", mw.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"payment confirmed"}`, rec.Body.String())
	assert.Equal(t, "admin-1", ts.conf.admin.ProfileID)
	assert.Equal(t, "o1", ts.conf.orderID)
	assert.Equal(t, "checked", ts.conf.notes)

	rec = ts.do(t, http.MethodPost, "/api/admin/orders/o1/reject", "", token(t, "admin-1", mw.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)

	ts.conf.err = model.ErrInvalidStateTransition
	rec = ts.do(t, http.MethodPost, "/api/admin/orders/o1/reject", `{}`, token(t, "admin-1", mw.RoleAdmin))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"order is not awaiting confirmation"}`, rec.Body.String())

	ts.conf.err = service.ErrOrderNotFound
	rec = ts.do(t, http.MethodPost, "/api/admin/orders/missing/confirm", `{}`, token(t, "admin-1", mw.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminListOrders_BadFilter(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/admin/orders?confirmation=maybe", "", token(t, "admin-1", mw.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/admin/orders?confirmation=pending_confirmation", "", token(t, "admin-1", mw.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRevenueHandler(t *testing.T) {
	ts := newTestServer(t)
	admin := token(t, "admin-1", mw.RoleAdmin)

	rec := ts.do(t, http.MethodGet, "/api/admin/revenue?from=2024-01-01&to=2024-01-31", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ts.revenue.rng.From)
	require.NotNil(t, ts.revenue.rng.To)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *ts.revenue.rng.From)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), *ts.revenue.rng.To)

	rec = ts.do(t, http.MethodGet, "/api/admin/revenue?from=yesterday", "", admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogAdmin_ValidatesBeforeStorage(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/admin/products",
		`{"name":"Sheet","category":"tiles","price":500,"currency":"INR"}`, token(t, "admin-1", mw.RoleAdmin))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "category")
}

func TestInquiryCreate_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/inquiries", `{"name":"","email":"x@y.z","message":"hi"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	h := HealthHandler(map[string]HealthCheck{
		"db":    func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"db":"ok","redis":"connection refused"}`, rec.Body.String())
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{payment.ErrConfiguration, http.StatusServiceUnavailable},
		{payment.ErrProvider, http.StatusBadGateway},
		{payment.ErrSignatureMismatch, http.StatusBadRequest},
		{model.ErrInvalidStateTransition, http.StatusConflict},
		{service.ErrOrderNotFound, http.StatusNotFound},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrInvalidCheckout, http.StatusUnprocessableEntity},
		{service.ErrInvalidCategory, http.StatusUnprocessableEntity},
		{service.ErrMixedCurrency, http.StatusUnprocessableEntity},
		{service.ErrLoginExists, http.StatusConflict},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrOptimisticLock, http.StatusConflict},
		{service.ErrInsufficientStock, http.StatusConflict},
		{money.ErrUnknownCurrency, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, _ := errorStatus(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

// Ids that are not UUIDs never reach Postgres, so the nil-db services below
// answer them without a database.
func TestMalformedIDsAreNotFound(t *testing.T) {
	conv, err := money.NewConverter("INR", map[string]string{})
	require.NoError(t, err)
	orders := service.NewOrderService(nil)
	ts := newTestServer(t, func(d *Deps) {
		d.Orders = orders
		d.Payments = service.NewPaymentService(orders, nil, nil, conv)
		d.Confirmations = service.NewConfirmationService(orders)
	})
	admin := token(t, "admin-1", mw.RoleAdmin)
	buyer := token(t, "buyer-1", mw.RoleBuyer)

	tests := []struct {
		method, path, body, token string
	}{
		{http.MethodGet, "/api/admin/orders/abc", "", admin},
		{http.MethodPost, "/api/admin/orders/abc/confirm", `{}`, admin},
		{http.MethodPut, "/api/admin/orders/abc/status", `{"status":"cancelled"}`, admin},
		{http.MethodDelete, "/api/admin/orders/abc", "", admin},
		{http.MethodPost, "/api/orders/abc/submit-payment", `{"payment_reference":"UTR1"}`, ""},
		{http.MethodGet, "/api/user/orders/abc", "", buyer},
		{http.MethodGet, "/api/products/abc", "", ""},
		{http.MethodGet, "/api/services/1", "", ""},
		{http.MethodGet, "/api/projects/abc", "", ""},
		{http.MethodDelete, "/api/admin/products/abc", "", admin},
		{http.MethodGet, "/api/admin/inquiries/abc", "", admin},
		{http.MethodGet, "/api/admin/profiles/abc", "", admin},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body, tt.token)
			assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
		})
	}
}

type fakeInventory struct {
	item            model.InventoryItem
	sku             string
	delta           int
	expectedVersion int
}

func (f *fakeInventory) Add(context.Context, string, string, string, int) (*model.InventoryItem, error) {
	return &f.item, nil
}

func (f *fakeInventory) List(context.Context) ([]model.InventoryItem, error) { return nil, nil }

func (f *fakeInventory) Get(context.Context, string) (*model.InventoryItem, error) {
	return &f.item, nil
}

func (f *fakeInventory) Adjust(_ context.Context, sku string, delta, expectedVersion int) (*model.InventoryItem, error) {
	f.sku, f.delta, f.expectedVersion = sku, delta, expectedVersion
	if expectedVersion != service.AnyVersion && expectedVersion != f.item.Version {
		return nil, service.ErrOptimisticLock
	}
	if f.item.Quantity+delta < 0 {
		return nil, service.ErrInsufficientStock
	}
	f.item.Quantity += delta
	f.item.Version++
	return &f.item, nil
}

func TestAdjustInventoryHandler(t *testing.T) {
	inv := &fakeInventory{item: model.InventoryItem{SKU: "TILE-1", Quantity: 10, Version: 3}}
	ts := newTestServer(t, func(d *Deps) { d.Inventory = inv })
	admin := token(t, "admin-1", mw.RoleAdmin)

	rec := ts.do(t, http.MethodPatch, "/api/admin/inventory/TILE-1", `{"delta":-4,"expected_version":3}`, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "TILE-1", inv.sku)
	assert.Equal(t, 3, inv.expectedVersion)

	var item model.InventoryItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, 6, item.Quantity)
	assert.Equal(t, 4, item.Version)

	// stale version
	rec = ts.do(t, http.MethodPatch, "/api/admin/inventory/TILE-1", `{"delta":-1,"expected_version":3}`, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// no expected_version skips the check
	rec = ts.do(t, http.MethodPatch, "/api/admin/inventory/TILE-1", `{"delta":2}`, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.AnyVersion, inv.expectedVersion)

	rec = ts.do(t, http.MethodPatch, "/api/admin/inventory/TILE-1", `{"delta":-100}`, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/admin/inventory/TILE-1", `{"delta":-1}`, token(t, "buyer-1", mw.RoleBuyer))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
