package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
)

type RazorpayOrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// RazorpayOrder is what the browser checkout widget needs to open a payment.
type RazorpayOrder struct {
	KeyID    string `json:"key_id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type razorpayOrders interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type Razorpay struct {
	keyID  string
	secret string
	orders razorpayOrders
}

func NewRazorpay(keyID, secret string) (*Razorpay, error) {
	if keyID == "" || secret == "" {
		return nil, fmt.Errorf("%w: razorpay key id and secret are required", ErrConfiguration)
	}
	client := razorpay.NewClient(keyID, secret)
	return &Razorpay{keyID: keyID, secret: secret, orders: client.Order}, nil
}

func (r *Razorpay) KeyID() string {
	return r.keyID
}

func (r *Razorpay) CreateOrder(ctx context.Context, req RazorpayOrderRequest) (*RazorpayOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": strings.ToUpper(req.Currency),
		"receipt":  req.Receipt,
		"notes":    notes,
	}

	resp, err := r.orders.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create razorpay order: %v", ErrProvider, err)
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: razorpay order response without id", ErrProvider)
	}
	amount, err := intField(resp["amount"])
	if err != nil {
		return nil, fmt.Errorf("%w: razorpay order amount: %v", ErrProvider, err)
	}
	currency, _ := resp["currency"].(string)
	receipt, _ := resp["receipt"].(string)

	return &RazorpayOrder{
		KeyID:    r.keyID,
		OrderID:  id,
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	}, nil
}

// VerifySignature checks the checkout callback signature in constant time.
func (r *Razorpay) VerifySignature(orderID, paymentID, signature string) error {
	expected := SignRazorpay(r.secret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// SignRazorpay is hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func SignRazorpay(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func intField(v interface{}) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
