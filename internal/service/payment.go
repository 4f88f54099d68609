package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"roofmart/internal/model"
	"roofmart/internal/money"
	"roofmart/internal/payment"
)

// OrderStore is the part of the order table the payment flows need.
// OrderService implements it.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	Get(ctx context.Context, id string) (*model.Order, error)
	GetByRazorpayOrder(ctx context.Context, razorpayOrderID string) (*model.Order, error)
	GetByStripeSession(ctx context.Context, sessionID string) (*model.Order, error)
	Transition(ctx context.Context, id string, t model.Trigger, p model.TransitionPatch) (bool, error)
	CancelUnpaid(ctx context.Context, id string, at time.Time, note string) (bool, error)
	BuyerExists(ctx context.Context, id string) (bool, error)
}

type RazorpayGateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req payment.RazorpayOrderRequest) (*payment.RazorpayOrder, error)
	VerifySignature(orderID, paymentID, signature string) error
}

type StripeGateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.StripeSessionRequest) (*payment.StripeSession, error)
	GetSession(ctx context.Context, sessionID string) (*payment.StripeSession, error)
}

// Currencies reports which order currencies the revenue report can convert.
// money.Converter implements it.
type Currencies interface {
	Supports(code string) bool
}

type CheckoutRequest struct {
	Items    []model.LineItem
	Currency string
	Method   model.PaymentMethod
	BuyerID  *string
	Buyer    model.Contact
}

type CheckoutResult struct {
	OrderID     string                 `json:"order_id"`
	Method      model.PaymentMethod    `json:"payment_method"`
	Amount      int64                  `json:"amount"`
	Currency    string                 `json:"currency"`
	Razorpay    *payment.RazorpayOrder `json:"razorpay,omitempty"`
	RedirectURL string                 `json:"redirect_url,omitempty"`
}

type RazorpayVerification struct {
	OrderID           string `json:"order_id,omitempty"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

type VerifyResult struct {
	OrderID   string                   `json:"order_id"`
	Verified  bool                     `json:"verified"`
	Status    model.ConfirmationStatus `json:"payment_confirmation_status"`
	Cancelled bool                     `json:"cancelled,omitempty"`
}

type PaymentService struct {
	orders     OrderStore
	razorpay   RazorpayGateway
	stripe     StripeGateway
	currencies Currencies
	now        func() time.Time
	newID      func() string
}

// NewPaymentService accepts nil gateways; calls that need a missing gateway
// fail with payment.ErrConfiguration. Checkout only accepts currencies that
// currencies supports.
func NewPaymentService(orders OrderStore, rzp RazorpayGateway, stripe StripeGateway, currencies Currencies) *PaymentService {
	return &PaymentService{
		orders:     orders,
		razorpay:   rzp,
		stripe:     stripe,
		currencies: currencies,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Checkout creates the provider session first and writes the order row only
// once the provider has answered, so a provider failure leaves nothing behind.
func (s *PaymentService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	total, currency, err := s.validateCheckout(req)
	if err != nil {
		return nil, err
	}
	// A provider session is never opened for an order that cannot be stored.
	if req.BuyerID != nil {
		ok, err := s.orders.BuyerExists(ctx, *req.BuyerID)
		if err != nil {
			return nil, fmt.Errorf("look up buyer: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: buyer profile no longer exists", ErrInvalidCredentials)
		}
	}

	now := s.now()
	order := &model.Order{
		ID:                 s.newID(),
		BuyerID:            req.BuyerID,
		Items:              append([]model.LineItem(nil), req.Items...),
		TotalAmount:        total,
		Currency:           currency,
		Status:             model.OrderStatusPending,
		PaymentMethod:      req.Method,
		ConfirmationStatus: model.ConfirmationNotSubmitted,
		Buyer:              req.Buyer,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	result := &CheckoutResult{OrderID: order.ID, Method: req.Method, Amount: total, Currency: currency}

	switch req.Method {
	case model.PaymentMethodRazorpay:
		if s.razorpay == nil {
			return nil, fmt.Errorf("%w: razorpay", payment.ErrConfiguration)
		}
		rzp, err := s.razorpay.CreateOrder(ctx, payment.RazorpayOrderRequest{
			Amount:   total,
			Currency: currency,
			Receipt:  order.ID,
			Notes:    map[string]string{"order_id": order.ID},
		})
		if err != nil {
			slog.Error("razorpay order creation failed", "order_id", order.ID, "error", err)
			return nil, providerError(err)
		}
		order.RazorpayOrderID = rzp.OrderID
		result.Razorpay = rzp

	case model.PaymentMethodStripe:
		if s.stripe == nil {
			return nil, fmt.Errorf("%w: stripe", payment.ErrConfiguration)
		}
		sess, err := s.stripe.CreateCheckoutSession(ctx, payment.StripeSessionRequest{
			OrderID:       order.ID,
			Items:         order.Items,
			Currency:      currency,
			CustomerEmail: req.Buyer.Email,
		})
		if err != nil {
			slog.Error("stripe session creation failed", "order_id", order.ID, "error", err)
			return nil, providerError(err)
		}
		order.StripeSessionID = sess.ID
		result.RedirectURL = sess.URL
	}

	if err := s.orders.Create(ctx, order); err != nil {
		slog.Error("order insert after provider session failed",
			"order_id", order.ID, "method", order.PaymentMethod,
			"razorpay_order_id", order.RazorpayOrderID, "stripe_session_id", order.StripeSessionID,
			"error", err)
		return nil, fmt.Errorf("create order: %w", err)
	}

	slog.Info("checkout started", "order_id", order.ID, "method", order.PaymentMethod, "amount", total, "currency", currency)
	return result, nil
}

func (s *PaymentService) validateCheckout(req CheckoutRequest) (int64, string, error) {
	if len(req.Items) == 0 {
		return 0, "", fmt.Errorf("%w: no items", ErrInvalidCheckout)
	}
	for i, it := range req.Items {
		if strings.TrimSpace(it.Name) == "" {
			return 0, "", fmt.Errorf("%w: item %d has no name", ErrInvalidCheckout, i)
		}
		if it.Quantity <= 0 {
			return 0, "", fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidCheckout, i)
		}
		if it.UnitPrice < 0 {
			return 0, "", fmt.Errorf("%w: item %d price is negative", ErrInvalidCheckout, i)
		}
		if it.UnitPrice > model.MaxUnitPrice {
			return 0, "", fmt.Errorf("%w: item %d price is too large", ErrInvalidCheckout, i)
		}
	}
	total, err := model.Total(req.Items)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidCheckout, err)
	}
	if total <= 0 {
		return 0, "", fmt.Errorf("%w: total must be positive", ErrInvalidCheckout)
	}
	currency := strings.ToUpper(req.Currency)
	if !money.ValidCode(currency) {
		return 0, "", fmt.Errorf("%w: currency %q", ErrInvalidCheckout, req.Currency)
	}
	if !s.currencies.Supports(currency) {
		return 0, "", fmt.Errorf("%w: currency %s is not accepted", ErrInvalidCheckout, currency)
	}
	if !req.Method.Valid() {
		return 0, "", fmt.Errorf("%w: payment method %q", ErrInvalidCheckout, req.Method)
	}
	return total, currency, nil
}

// VerifyRazorpay checks the checkout callback signature before touching the
// order, then confirms it.
func (s *PaymentService) VerifyRazorpay(ctx context.Context, in RazorpayVerification) (*VerifyResult, error) {
	if in.RazorpayOrderID == "" || in.RazorpayPaymentID == "" || in.RazorpaySignature == "" {
		return nil, fmt.Errorf("%w: razorpay ids and signature are required", ErrInvalidVerification)
	}
	if s.razorpay == nil {
		return nil, fmt.Errorf("%w: razorpay", payment.ErrConfiguration)
	}

	if err := s.razorpay.VerifySignature(in.RazorpayOrderID, in.RazorpayPaymentID, in.RazorpaySignature); err != nil {
		slog.Warn("razorpay signature rejected",
			"razorpay_order_id", in.RazorpayOrderID, "razorpay_payment_id", in.RazorpayPaymentID)
		return nil, payment.ErrSignatureMismatch
	}

	order, err := s.orders.GetByRazorpayOrder(ctx, in.RazorpayOrderID)
	if err != nil {
		return nil, err
	}
	if in.OrderID != "" && in.OrderID != order.ID {
		slog.Warn("razorpay order belongs to another order",
			"order_id", in.OrderID, "razorpay_order_id", in.RazorpayOrderID)
		return nil, payment.ErrSignatureMismatch
	}

	return s.confirmByProvider(ctx, order, model.TransitionPatch{
		At:                s.now(),
		RazorpayPaymentID: in.RazorpayPaymentID,
		RazorpaySignature: in.RazorpaySignature,
	})
}

// VerifyStripe asks Stripe for the session state; only a paid session
// confirms the order. An expired unpaid session cancels it.
func (s *PaymentService) VerifyStripe(ctx context.Context, sessionID string) (*VerifyResult, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidVerification)
	}

	order, err := s.orders.GetByStripeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if order.ConfirmationStatus == model.ConfirmationConfirmed {
		return verified(order.ID), nil
	}
	if s.stripe == nil {
		return nil, fmt.Errorf("%w: stripe", payment.ErrConfiguration)
	}

	sess, err := s.stripe.GetSession(ctx, sessionID)
	if err != nil {
		slog.Error("stripe session lookup failed", "order_id", order.ID, "session_id", sessionID, "error", err)
		return nil, providerError(err)
	}
	if !sess.Paid {
		res := &VerifyResult{OrderID: order.ID, Verified: false, Status: order.ConfirmationStatus}
		if sess.Expired {
			cancelled, err := s.orders.CancelUnpaid(ctx, order.ID, s.now(), "stripe session expired unpaid")
			if err != nil {
				return nil, err
			}
			if cancelled {
				slog.Info("order cancelled after stripe session expired", "order_id", order.ID, "session_id", sessionID)
			}
			res.Cancelled = cancelled
		}
		return res, nil
	}

	return s.confirmByProvider(ctx, order, model.TransitionPatch{
		At:                    s.now(),
		StripePaymentIntentID: sess.PaymentIntentID,
	})
}

// confirmByProvider treats the current confirmation status as a lock: an
// already confirmed order short-circuits, and a lost compare-and-swap is
// resolved by re-reading the row instead of failing.
func (s *PaymentService) confirmByProvider(ctx context.Context, order *model.Order, patch model.TransitionPatch) (*VerifyResult, error) {
	if order.ConfirmationStatus == model.ConfirmationConfirmed {
		return verified(order.ID), nil
	}
	if _, err := model.NextConfirmation(order.ConfirmationStatus, model.TriggerProviderVerified); err != nil {
		slog.Warn("provider payment for order that is not awaiting payment",
			"order_id", order.ID, "payment_confirmation_status", order.ConfirmationStatus)
		return &VerifyResult{OrderID: order.ID, Verified: false, Status: order.ConfirmationStatus}, nil
	}

	applied, err := s.orders.Transition(ctx, order.ID, model.TriggerProviderVerified, patch)
	if err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}
	if applied {
		slog.Info("payment confirmed by provider", "order_id", order.ID, "method", order.PaymentMethod)
		return verified(order.ID), nil
	}

	current, err := s.orders.Get(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{
		OrderID:  current.ID,
		Verified: current.ConfirmationStatus == model.ConfirmationConfirmed,
		Status:   current.ConfirmationStatus,
	}, nil
}

// SubmitManualPayment records the buyer's bank transfer or QR payment
// reference and queues the order for admin confirmation. Guest orders can be
// submitted by whoever holds the order id.
func (s *PaymentService) SubmitManualPayment(ctx context.Context, orderID string, buyerID *string, reference string) (*model.Order, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: payment reference is required", ErrInvalidInput)
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != nil && (buyerID == nil || *buyerID != *order.BuyerID) {
		return nil, ErrOrderNotFound
	}
	if !order.PaymentMethod.Offline() {
		return nil, fmt.Errorf("%w: %s orders are confirmed by the provider", model.ErrInvalidStateTransition, order.PaymentMethod)
	}

	applied, err := s.orders.Transition(ctx, order.ID, model.TriggerSubmit, model.TransitionPatch{
		At:               s.now(),
		PaymentReference: reference,
	})
	if err != nil {
		return nil, fmt.Errorf("submit payment: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: payment already submitted", model.ErrInvalidStateTransition)
	}

	slog.Info("manual payment submitted", "order_id", order.ID)
	return s.orders.Get(ctx, order.ID)
}

func verified(orderID string) *VerifyResult {
	return &VerifyResult{OrderID: orderID, Verified: true, Status: model.ConfirmationConfirmed}
}

// providerError keeps configuration and provider errors as they are and turns
// anything else from a gateway into ErrProvider.
func providerError(err error) error {
	if errors.Is(err, payment.ErrConfiguration) || errors.Is(err, payment.ErrProvider) {
		return err
	}
	return fmt.Errorf("%w: %v", payment.ErrProvider, err)
}
