package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"roofmart/internal/model"
	"roofmart/internal/payment"
	"roofmart/internal/service"
)

type unverifiedLister interface {
	ListUnverifiedStripe(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error)
}

type stripeVerifier interface {
	VerifyStripe(ctx context.Context, sessionID string) (*service.VerifyResult, error)
}

// StripeReconciler confirms Stripe orders whose buyer never came back through
// the success redirect, and cancels those whose session expired unpaid so
// they leave the queue.
type StripeReconciler struct {
	orders    unverifiedLister
	verifier  stripeVerifier
	interval  time.Duration
	minAge    time.Duration
	batchSize int
	now       func() time.Time
}

func NewStripeReconciler(orders unverifiedLister, verifier stripeVerifier, interval, minAge time.Duration, batchSize int) *StripeReconciler {
	return &StripeReconciler{
		orders:    orders,
		verifier:  verifier,
		interval:  interval,
		minAge:    minAge,
		batchSize: batchSize,
		now:       time.Now,
	}
}

func (w *StripeReconciler) Start(ctx context.Context) {
	slog.Info("starting stripe reconciler", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stripe reconciler stopped")
			return
		case <-ticker.C:
			if _, err := w.processBatch(ctx); err != nil {
				slog.Error("batch processing failed", "error", err)
			}
		}
	}
}

type batchStats struct {
	confirmed int
	cancelled int
}

func (w *StripeReconciler) processBatch(ctx context.Context) (batchStats, error) {
	var stats batchStats
	orders, err := w.orders.ListUnverifiedStripe(ctx, w.now().Add(-w.minAge), w.batchSize)
	if err != nil {
		return stats, fmt.Errorf("list unverified stripe orders: %w", err)
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		res, err := w.verifier.VerifyStripe(ctx, order.StripeSessionID)
		if err != nil {
			if errors.Is(err, payment.ErrConfiguration) {
				return stats, err
			}
			slog.Warn("stripe verification failed", "order_id", order.ID, "session_id", order.StripeSessionID, "error", err)
			continue
		}
		switch {
		case res.Verified:
			stats.confirmed++
			slog.Info("stripe order reconciled", "order_id", order.ID)
		case res.Cancelled:
			stats.cancelled++
		}
	}

	if stats.confirmed+stats.cancelled > 0 {
		slog.Info("stripe batch done", "confirmed", stats.confirmed, "cancelled", stats.cancelled, "checked", len(orders))
	}
	return stats, nil
}
