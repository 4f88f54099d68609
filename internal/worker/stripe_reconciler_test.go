package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roofmart/internal/model"
	"roofmart/internal/payment"
	"roofmart/internal/service"
)

type stubLister struct {
	orders        []model.Order
	err           error
	createdBefore time.Time
	limit         int
}

func (s *stubLister) ListUnverifiedStripe(_ context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	s.createdBefore, s.limit = createdBefore, limit
	return s.orders, s.err
}

type stubVerifier struct {
	mu      sync.Mutex
	results map[string]error
	paid    map[string]bool
	expired map[string]bool
	calls   []string
}

func (s *stubVerifier) VerifyStripe(_ context.Context, sessionID string) (*service.VerifyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sessionID)
	if err := s.results[sessionID]; err != nil {
		return nil, err
	}
	return &service.VerifyResult{Verified: s.paid[sessionID], Cancelled: s.expired[sessionID]}, nil
}

func stripeOrder(id, session string) model.Order {
	return model.Order{ID: id, PaymentMethod: model.PaymentMethodStripe, StripeSessionID: session}
}

func TestProcessBatch(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	lister := &stubLister{orders: []model.Order{
		stripeOrder("o1", "cs_1"),
		stripeOrder("o2", "cs_2"),
		stripeOrder("o3", "cs_3"),
	}}
	verifier := &stubVerifier{
		results: map[string]error{"cs_2": payment.ErrProvider},
		paid:    map[string]bool{"cs_1": true},
	}

	w := NewStripeReconciler(lister, verifier, time.Minute, 5*time.Minute, 25)
	w.now = func() time.Time { return now }

	stats, err := w.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.confirmed)
	assert.Equal(t, 0, stats.cancelled)
	assert.Equal(t, []string{"cs_1", "cs_2", "cs_3"}, verifier.calls)
	assert.Equal(t, now.Add(-5*time.Minute), lister.createdBefore)
	assert.Equal(t, 25, lister.limit)
}

func TestProcessBatch_ExpiredSessionsLeaveQueue(t *testing.T) {
	lister := &stubLister{orders: []model.Order{
		stripeOrder("o1", "cs_old"),
		stripeOrder("o2", "cs_paid"),
	}}
	verifier := &stubVerifier{
		paid:    map[string]bool{"cs_paid": true},
		expired: map[string]bool{"cs_old": true},
	}

	w := NewStripeReconciler(lister, verifier, time.Minute, time.Minute, 2)
	stats, err := w.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, batchStats{confirmed: 1, cancelled: 1}, stats)

	// Both orders are now out of the pending queue, so the next batch sees
	// whatever came after them.
	lister.orders = []model.Order{stripeOrder("o3", "cs_next")}
	_, err = w.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"cs_old", "cs_paid", "cs_next"}, verifier.calls)
}

func TestProcessBatch_StopsWithoutConfiguration(t *testing.T) {
	lister := &stubLister{orders: []model.Order{stripeOrder("o1", "cs_1"), stripeOrder("o2", "cs_2")}}
	verifier := &stubVerifier{results: map[string]error{"cs_1": payment.ErrConfiguration}}

	w := NewStripeReconciler(lister, verifier, time.Minute, time.Minute, 10)
	_, err := w.processBatch(context.Background())
	assert.ErrorIs(t, err, payment.ErrConfiguration)
	assert.Equal(t, []string{"cs_1"}, verifier.calls)
}

func TestProcessBatch_ListError(t *testing.T) {
	w := NewStripeReconciler(&stubLister{err: errors.New("db down")}, &stubVerifier{}, time.Minute, time.Minute, 10)
	_, err := w.processBatch(context.Background())
	assert.Error(t, err)
}

func TestStart_StopsOnCancel(t *testing.T) {
	lister := &stubLister{}
	w := NewStripeReconciler(lister, &stubVerifier{}, 10*time.Millisecond, time.Minute, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
