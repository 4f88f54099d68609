package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrInvalidStateTransition = errors.New("invalid payment confirmation transition")
	ErrAmountOverflow         = errors.New("amount out of range")
)

// MaxUnitPrice caps a single item price in minor units.
const MaxUnitPrice int64 = 1_000_000_000_000

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodStripe   PaymentMethod = "stripe"
	PaymentMethodManual   PaymentMethod = "manual"
	PaymentMethodQRCode   PaymentMethod = "qr_code"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodRazorpay, PaymentMethodStripe, PaymentMethodManual, PaymentMethodQRCode:
		return true
	}
	return false
}

// Offline reports whether the payment is settled outside any provider and
// has to be confirmed by an admin.
func (m PaymentMethod) Offline() bool {
	return m == PaymentMethodManual || m == PaymentMethodQRCode
}

type ConfirmationStatus string

const (
	ConfirmationNotSubmitted ConfirmationStatus = "not_submitted"
	ConfirmationPending      ConfirmationStatus = "pending_confirmation"
	ConfirmationConfirmed    ConfirmationStatus = "confirmed"
	ConfirmationFailed       ConfirmationStatus = "payment_failed"
)

func (s ConfirmationStatus) Valid() bool {
	switch s {
	case ConfirmationNotSubmitted, ConfirmationPending, ConfirmationConfirmed, ConfirmationFailed:
		return true
	}
	return false
}

// Trigger is the event that asks for a confirmation status change.
type Trigger int

const (
	TriggerSubmit Trigger = iota + 1
	TriggerProviderVerified
	TriggerAdminConfirm
	TriggerAdminReject
)

func (t Trigger) String() string {
	switch t {
	case TriggerSubmit:
		return "submit"
	case TriggerProviderVerified:
		return "provider_verified"
	case TriggerAdminConfirm:
		return "admin_confirm"
	case TriggerAdminReject:
		return "admin_reject"
	}
	return fmt.Sprintf("trigger(%d)", int(t))
}

var transitions = map[Trigger]struct {
	from []ConfirmationStatus
	to   ConfirmationStatus
}{
	TriggerSubmit:           {from: []ConfirmationStatus{ConfirmationNotSubmitted}, to: ConfirmationPending},
	TriggerProviderVerified: {from: []ConfirmationStatus{ConfirmationNotSubmitted, ConfirmationPending}, to: ConfirmationConfirmed},
	TriggerAdminConfirm:     {from: []ConfirmationStatus{ConfirmationPending}, to: ConfirmationConfirmed},
	TriggerAdminReject:      {from: []ConfirmationStatus{ConfirmationPending}, to: ConfirmationFailed},
}

// NextConfirmation is the only place confirmation transitions are decided.
func NextConfirmation(current ConfirmationStatus, t Trigger) (ConfirmationStatus, error) {
	tr, ok := transitions[t]
	if !ok {
		return current, fmt.Errorf("%w: unknown trigger %s", ErrInvalidStateTransition, t)
	}
	for _, from := range tr.from {
		if from == current {
			return tr.to, nil
		}
	}
	return current, fmt.Errorf("%w: %s from %s", ErrInvalidStateTransition, t, current)
}

// Sources returns the statuses a trigger may fire from. Stores use it to build
// the compare-and-swap condition of a transition update.
func (t Trigger) Sources() []ConfirmationStatus {
	tr, ok := transitions[t]
	if !ok {
		return nil
	}
	out := make([]ConfirmationStatus, len(tr.from))
	copy(out, tr.from)
	return out
}

func (t Trigger) Target() ConfirmationStatus {
	return transitions[t].to
}

type LineItem struct {
	Name      string  `json:"name"`
	UnitPrice int64   `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	ProductID *string `json:"product_id,omitempty"`
}

// Subtotal is the line amount in minor units. It does not check for
// overflow; Total does.
func (li LineItem) Subtotal() int64 {
	return li.UnitPrice * int64(li.Quantity)
}

type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Order struct {
	ID                    string             `json:"id"`
	BuyerID               *string            `json:"buyer_id,omitempty"`
	Items                 []LineItem         `json:"items"`
	TotalAmount           int64              `json:"total_amount"`
	Currency              string             `json:"currency"`
	Status                OrderStatus        `json:"status"`
	PaymentMethod         PaymentMethod      `json:"payment_method"`
	ConfirmationStatus    ConfirmationStatus `json:"payment_confirmation_status"`
	RazorpayOrderID       string             `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID     string             `json:"razorpay_payment_id,omitempty"`
	RazorpaySignature     string             `json:"-"`
	StripeSessionID       string             `json:"stripe_session_id,omitempty"`
	StripePaymentIntentID string             `json:"stripe_payment_intent_id,omitempty"`
	Buyer                 Contact            `json:"buyer"`
	PaymentReference      string             `json:"payment_reference,omitempty"`
	SubmittedAt           *time.Time         `json:"submitted_at,omitempty"`
	ConfirmedAt           *time.Time         `json:"confirmed_at,omitempty"`
	CompletedAt           *time.Time         `json:"completed_at,omitempty"`
	ConfirmedBy           *string            `json:"confirmed_by,omitempty"`
	Notes                 string             `json:"notes,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// Total sums the items. It is only used when an order is created; the stored
// total is never recomputed afterwards. Negative prices or quantities must be
// rejected before calling it.
func Total(items []LineItem) (int64, error) {
	var sum int64
	for i, li := range items {
		if li.Quantity > 0 && li.UnitPrice > math.MaxInt64/int64(li.Quantity) {
			return 0, fmt.Errorf("%w: item %d", ErrAmountOverflow, i)
		}
		sub := li.Subtotal()
		if sum > math.MaxInt64-sub {
			return 0, fmt.Errorf("%w: order total", ErrAmountOverflow)
		}
		sum += sub
	}
	return sum, nil
}

// TransitionPatch carries the columns written together with a confirmation
// status change.
type TransitionPatch struct {
	At                    time.Time
	RazorpayPaymentID     string
	RazorpaySignature     string
	StripePaymentIntentID string
	PaymentReference      string
	ConfirmedBy           string
	Notes                 string
}

// AppendNote joins notes line by line, skipping empty input.
func AppendNote(existing, note string) string {
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

// Apply mutates o the way a successful transition to next does in the store.
func (o *Order) Apply(next ConfirmationStatus, p TransitionPatch) {
	at := p.At
	o.ConfirmationStatus = next
	o.UpdatedAt = at
	if p.RazorpayPaymentID != "" {
		o.RazorpayPaymentID = p.RazorpayPaymentID
	}
	if p.RazorpaySignature != "" {
		o.RazorpaySignature = p.RazorpaySignature
	}
	if p.StripePaymentIntentID != "" {
		o.StripePaymentIntentID = p.StripePaymentIntentID
	}
	if p.PaymentReference != "" {
		o.PaymentReference = p.PaymentReference
	}
	o.Notes = AppendNote(o.Notes, p.Notes)

	switch next {
	case ConfirmationPending:
		o.SubmittedAt = &at
	case ConfirmationConfirmed:
		o.ConfirmedAt = &at
		o.CompletedAt = &at
		o.Status = OrderStatusCompleted
		if p.ConfirmedBy != "" {
			by := p.ConfirmedBy
			o.ConfirmedBy = &by
		}
	}
}
