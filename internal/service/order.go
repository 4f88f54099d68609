package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"roofmart/internal/model"
)

const orderColumns = `
	id, buyer_id, items, total_amount, currency, status, payment_method, payment_confirmation_status,
	razorpay_order_id, razorpay_payment_id, razorpay_signature, stripe_session_id, stripe_payment_intent_id,
	buyer_name, buyer_email, buyer_phone, payment_reference,
	submitted_at, confirmed_at, completed_at, confirmed_by, notes, created_at, updated_at`

type OrderService struct {
	db *sql.DB
}

func NewOrderService(db *sql.DB) *OrderService {
	return &OrderService{db: db}
}

type OrderFilter struct {
	BuyerID      string
	Status       model.OrderStatus
	Confirmation model.ConfirmationStatus
	Method       model.PaymentMethod
	Limit        int
	Offset       int
}

func (s *OrderService) Create(ctx context.Context, o *model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, buyer_id, items, total_amount, currency, status, payment_method, payment_confirmation_status,
			razorpay_order_id, stripe_session_id, buyer_name, buyer_email, buyer_phone, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		o.ID, nullablePtr(o.BuyerID), string(items), o.TotalAmount, o.Currency, string(o.Status),
		string(o.PaymentMethod), string(o.ConfirmationStatus),
		nullable(o.RazorpayOrderID), nullable(o.StripeSessionID),
		o.Buyer.Name, o.Buyer.Email, o.Buyer.Phone, o.Notes, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*model.Order, error) {
	if !validID(id) {
		return nil, ErrOrderNotFound
	}
	return s.getBy(ctx, "id", id)
}

func (s *OrderService) GetByRazorpayOrder(ctx context.Context, razorpayOrderID string) (*model.Order, error) {
	return s.getBy(ctx, "razorpay_order_id", razorpayOrderID)
}

func (s *OrderService) GetByStripeSession(ctx context.Context, sessionID string) (*model.Order, error) {
	return s.getBy(ctx, "stripe_session_id", sessionID)
}

// column is always one of the constants above, never user input.
func (s *OrderService) getBy(ctx context.Context, column, value string) (*model.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+column+` = $1`, value)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (s *OrderService) List(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.BuyerID != "" {
		add("buyer_id = $%d", f.BuyerID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Confirmation != "" {
		add("payment_confirmation_status = $%d", string(f.Confirmation))
	}
	if f.Method != "" {
		add("payment_method = $%d", string(f.Method))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit, f.Offset)
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return s.query(ctx, query, args...)
}

func (s *OrderService) ListByBuyer(ctx context.Context, buyerID string) ([]model.Order, error) {
	return s.List(ctx, OrderFilter{BuyerID: buyerID})
}

// ListConfirmed returns confirmed orders, optionally bounded on confirmed_at.
func (s *OrderService) ListConfirmed(ctx context.Context, from, to *time.Time) ([]model.Order, error) {
	return s.query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE payment_confirmation_status = 'confirmed'
		  AND ($1::timestamptz IS NULL OR confirmed_at >= $1)
		  AND ($2::timestamptz IS NULL OR confirmed_at < $2)
		ORDER BY confirmed_at ASC
	`, nullableTime(from), nullableTime(to))
}

// ListUnverifiedStripe returns Stripe orders still waiting for a verification
// and created before the given time.
func (s *OrderService) ListUnverifiedStripe(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	return s.query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE payment_method = 'stripe'
		  AND payment_confirmation_status = 'not_submitted'
		  AND status = 'pending'
		  AND stripe_session_id IS NOT NULL
		  AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`, createdBefore, limit)
}

// Transition applies a confirmation status change as a single conditional
// update keyed on the current status. It reports false when the row was not
// in one of the trigger's source statuses (or does not exist).
func (s *OrderService) Transition(ctx context.Context, id string, t model.Trigger, p model.TransitionPatch) (bool, error) {
	sources := t.Sources()
	if len(sources) == 0 {
		return false, fmt.Errorf("%w: unknown trigger %s", model.ErrInvalidStateTransition, t)
	}
	if !validID(id) {
		return false, nil
	}

	args := []any{
		id,
		string(t.Target()),
		p.At,
		nullable(p.RazorpayPaymentID),
		nullable(p.RazorpaySignature),
		nullable(p.StripePaymentIntentID),
		p.PaymentReference,
		nullable(p.ConfirmedBy),
		p.Notes,
	}
	placeholders := make([]string, len(sources))
	for i, src := range sources {
		args = append(args, string(src))
		placeholders[i] = "$" + strconv.Itoa(len(args))
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET
			payment_confirmation_status = $2::text,
			razorpay_payment_id = COALESCE($4::text, razorpay_payment_id),
			razorpay_signature = COALESCE($5::text, razorpay_signature),
			stripe_payment_intent_id = COALESCE($6::text, stripe_payment_intent_id),
			payment_reference = CASE WHEN $7::text = '' THEN payment_reference ELSE $7::text END,
			submitted_at = CASE WHEN $2::text = 'pending_confirmation' THEN $3::timestamptz ELSE submitted_at END,
			confirmed_at = CASE WHEN $2::text = 'confirmed' THEN $3::timestamptz ELSE confirmed_at END,
			completed_at = CASE WHEN $2::text = 'confirmed' THEN $3::timestamptz ELSE completed_at END,
			status = CASE WHEN $2::text = 'confirmed' THEN 'completed' ELSE status END,
			confirmed_by = COALESCE($8::uuid, confirmed_by),
			notes = CASE
				WHEN $9::text = '' THEN notes
				WHEN notes = '' THEN $9::text
				ELSE notes || E'\n' || $9::text
			END,
			updated_at = $3::timestamptz
		WHERE id = $1 AND payment_confirmation_status IN (`+strings.Join(placeholders, ", ")+`)`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("transition order: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition order rows: %w", err)
	}
	return rows == 1, nil
}

// BuyerExists reports whether the profile behind a buyer session is still
// there.
func (s *OrderService) BuyerExists(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var ok bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM profiles WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check buyer: %w", err)
	}
	return ok, nil
}

// CancelUnpaid cancels an order whose payment never started, e.g. after its
// Stripe session expired. It reports false when the order is no longer
// pending and unpaid.
func (s *OrderService) CancelUnpaid(ctx context.Context, id string, at time.Time, note string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET
			status = 'cancelled',
			notes = CASE WHEN notes = '' THEN $3::text ELSE notes || E'\n' || $3::text END,
			updated_at = $2
		WHERE id = $1
		  AND status = 'pending'
		  AND payment_confirmation_status = 'not_submitted'`,
		id, at, note,
	)
	if err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel order rows: %w", err)
	}
	return rows == 1, nil
}

// UpdateStatus changes the fulfillment status. completed and refunded are only
// reachable for orders whose payment is confirmed.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrStatusNotAllowed, status)
	}
	if !validID(id) {
		return ErrOrderNotFound
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		  AND ($2 NOT IN ('completed', 'refunded') OR payment_confirmation_status = 'confirmed')
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s requires a confirmed payment", ErrStatusNotAllowed, status)
	}
	return nil
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrOrderNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *OrderService) query(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var o model.Order
	var items []byte
	var status, method, confirmation string
	var buyerID, confirmedBy sql.NullString
	var rzpOrder, rzpPayment, rzpSignature sql.NullString
	var stripeSession, stripeIntent sql.NullString
	var submittedAt, confirmedAt, completedAt sql.NullTime

	err := row.Scan(
		&o.ID, &buyerID, &items, &o.TotalAmount, &o.Currency, &status, &method, &confirmation,
		&rzpOrder, &rzpPayment, &rzpSignature, &stripeSession, &stripeIntent,
		&o.Buyer.Name, &o.Buyer.Email, &o.Buyer.Phone, &o.PaymentReference,
		&submittedAt, &confirmedAt, &completedAt, &confirmedBy, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	o.Status = model.OrderStatus(status)
	o.PaymentMethod = model.PaymentMethod(method)
	o.ConfirmationStatus = model.ConfirmationStatus(confirmation)
	o.BuyerID = ptrFromNull(buyerID)
	o.ConfirmedBy = ptrFromNull(confirmedBy)
	o.RazorpayOrderID = rzpOrder.String
	o.RazorpayPaymentID = rzpPayment.String
	o.RazorpaySignature = rzpSignature.String
	o.StripeSessionID = stripeSession.String
	o.StripePaymentIntentID = stripeIntent.String
	o.SubmittedAt = timeFromNull(submittedAt)
	o.ConfirmedAt = timeFromNull(confirmedAt)
	o.CompletedAt = timeFromNull(completedAt)

	return &o, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullablePtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullable(*s)
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func ptrFromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timeFromNull(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
