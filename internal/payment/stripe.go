package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"roofmart/internal/model"
)

type StripeSessionRequest struct {
	OrderID       string
	Items         []model.LineItem
	Currency      string
	CustomerEmail string
}

type StripeSession struct {
	ID                string
	URL               string
	ClientReferenceID string
	Paid              bool
	Expired           bool // can no longer be paid
	PaymentIntentID   string
}

// sessionTTL bounds how long an abandoned checkout keeps its order open.
// Stripe accepts 30 minutes to 24 hours.
const sessionTTL = time.Hour

type stripeSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type Stripe struct {
	sessions   stripeSessions
	successURL string
	cancelURL  string
}

// NewStripe builds a gateway with its own API client so the global stripe.Key
// is never touched. successURL should contain {CHECKOUT_SESSION_ID}.
func NewStripe(secretKey, successURL, cancelURL string) (*Stripe, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("%w: stripe secret key is required", ErrConfiguration)
	}
	if successURL == "" || cancelURL == "" {
		return nil, fmt.Errorf("%w: stripe success and cancel urls are required", ErrConfiguration)
	}
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &Stripe{sessions: sc.CheckoutSessions, successURL: successURL, cancelURL: cancelURL}, nil
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req StripeSessionRequest) (*StripeSession, error) {
	currency := strings.ToLower(req.Currency)
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, it := range req.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(it.Name),
				},
				UnitAmount: stripe.Int64(it.UnitPrice),
			},
			Quantity: stripe.Int64(int64(it.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         lineItems,
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(req.OrderID),
		ExpiresAt:         stripe.Int64(time.Now().Add(sessionTTL).Unix()),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata("order_id", req.OrderID)
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create stripe session: %v", ErrProvider, err)
	}
	return toStripeSession(sess), nil
}

// GetSession looks the session up server-side; the redirect query string is
// never trusted for payment state.
func (s *Stripe) GetSession(ctx context.Context, sessionID string) (*StripeSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := s.sessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: get stripe session: %v", ErrProvider, err)
	}
	return toStripeSession(sess), nil
}

func toStripeSession(sess *stripe.CheckoutSession) *StripeSession {
	out := &StripeSession{
		ID:                sess.ID,
		URL:               sess.URL,
		ClientReferenceID: sess.ClientReferenceID,
		Paid:              sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Expired:           sess.Status == stripe.CheckoutSessionStatusExpired,
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	return out
}
