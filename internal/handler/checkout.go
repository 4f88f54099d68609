package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"roofmart/internal/model"
	"roofmart/internal/mw"
	"roofmart/internal/service"
)

type Payments interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
	VerifyRazorpay(ctx context.Context, in service.RazorpayVerification) (*service.VerifyResult, error)
	VerifyStripe(ctx context.Context, sessionID string) (*service.VerifyResult, error)
	SubmitManualPayment(ctx context.Context, orderID string, buyerID *string, reference string) (*model.Order, error)
}

const checkoutSchema = `{
  "type": "object",
  "required": ["items", "currency", "payment_method"],
  "properties": {
    "items": {
      "type": "array",
      "minItems": 1,
      "maxItems": 200,
      "items": {
        "type": "object",
        "required": ["name", "unit_price", "quantity"],
        "properties": {
          "name": {"type": "string", "minLength": 1, "maxLength": 200},
          "unit_price": {"type": "integer", "minimum": 0, "maximum": 1000000000000},
          "quantity": {"type": "integer", "minimum": 1, "maximum": 999},
          "product_id": {"type": "string"}
        }
      }
    },
    "currency": {"type": "string", "pattern": "^[A-Za-z]{3}$"},
    "payment_method": {"type": "string", "enum": ["razorpay", "stripe", "manual", "qr_code"]},
    "buyer": {
      "type": "object",
      "properties": {
        "name": {"type": "string", "maxLength": 200},
        "email": {"type": "string", "maxLength": 320},
        "phone": {"type": "string", "maxLength": 40}
      }
    }
  }
}`

var checkoutLoader = gojsonschema.NewStringLoader(checkoutSchema)

func validateJSONSchema(schemaLoader gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: malformed request body: %v", service.ErrInvalidCheckout, err)
	}
	if !result.Valid() {
		var sb strings.Builder
		for i, e := range result.Errors() {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(e.String())
		}
		return fmt.Errorf("%w: %s", service.ErrInvalidCheckout, sb.String())
	}
	return nil
}

type checkoutRequest struct {
	Items    []model.LineItem    `json:"items"`
	Currency string              `json:"currency"`
	Method   model.PaymentMethod `json:"payment_method"`
	Buyer    model.Contact       `json:"buyer"`
}

func CheckoutHandler(payments Payments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(w, r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		if err := validateJSONSchema(checkoutLoader, body); err != nil {
			writeError(w, r, err)
			return
		}

		var req checkoutRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
			return
		}

		res, err := payments.Checkout(r.Context(), service.CheckoutRequest{
			Items:    req.Items,
			Currency: req.Currency,
			Method:   req.Method,
			BuyerID:  mw.UserIDPtr(r.Context()),
			Buyer:    req.Buyer,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, res)
	}
}

func RazorpayVerifyHandler(payments Payments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.RazorpayVerification
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := payments.VerifyRazorpay(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// StripeVerifyHandler takes the session id from the query string (the
// success redirect) or from a JSON body.
func StripeVerifyHandler(payments Payments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" && r.Method == http.MethodPost {
			var req struct {
				SessionID string `json:"session_id"`
			}
			if !decodeJSON(w, r, &req) {
				return
			}
			sessionID = req.SessionID
		}

		res, err := payments.VerifyStripe(r.Context(), sessionID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
