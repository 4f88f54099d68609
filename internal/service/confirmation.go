package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"roofmart/internal/model"
)

// ConfirmationService runs the admin side of offline payments.
type ConfirmationService struct {
	orders OrderStore
	now    func() time.Time
}

func NewConfirmationService(orders OrderStore) *ConfirmationService {
	return &ConfirmationService{orders: orders, now: func() time.Time { return time.Now().UTC() }}
}

func (s *ConfirmationService) Confirm(ctx context.Context, admin model.AdminSession, orderID, notes string) (*model.Order, error) {
	return s.decide(ctx, admin, orderID, notes, model.TriggerAdminConfirm)
}

func (s *ConfirmationService) Reject(ctx context.Context, admin model.AdminSession, orderID, notes string) (*model.Order, error) {
	return s.decide(ctx, admin, orderID, notes, model.TriggerAdminReject)
}

func (s *ConfirmationService) decide(ctx context.Context, admin model.AdminSession, orderID, notes string, t model.Trigger) (*model.Order, error) {
	now := s.now()
	if !admin.Valid(now) {
		return nil, ErrAdminSession
	}

	patch := model.TransitionPatch{At: now, Notes: strings.TrimSpace(notes)}
	if t == model.TriggerAdminConfirm {
		patch.ConfirmedBy = admin.ProfileID
	}

	applied, err := s.orders.Transition(ctx, orderID, t, patch)
	if err != nil {
		return nil, fmt.Errorf("%s order: %w", t, err)
	}
	if !applied {
		current, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: order %s is %s", model.ErrInvalidStateTransition, orderID, current.ConfirmationStatus)
	}

	slog.Info("payment decision recorded", "order_id", orderID, "decision", t.String(), "admin_id", admin.ProfileID)
	return s.orders.Get(ctx, orderID)
}
