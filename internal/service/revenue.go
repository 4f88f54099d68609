package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"roofmart/internal/model"
	"roofmart/internal/money"
)

type RevenueRange struct {
	From *time.Time
	To   *time.Time
}

// Contains is inclusive of From and exclusive of To.
func (r RevenueRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && !t.Before(*r.To) {
		return false
	}
	return true
}

type MethodRevenue struct {
	Count int   `json:"count"`
	Total int64 `json:"total"`
}

type RevenueReport struct {
	DisplayCurrency string                                `json:"display_currency"`
	Total           int64                                 `json:"total"`
	Count           int                                   `json:"count"`
	Average         int64                                 `json:"average"`
	ByMethod        map[model.PaymentMethod]MethodRevenue `json:"by_method"`
}

type confirmedOrderLister interface {
	ListConfirmed(ctx context.Context, from, to *time.Time) ([]model.Order, error)
}

type RevenueService struct {
	orders confirmedOrderLister
	conv   *money.Converter
}

func NewRevenueService(orders confirmedOrderLister, conv *money.Converter) *RevenueService {
	return &RevenueService{orders: orders, conv: conv}
}

func (s *RevenueService) Report(ctx context.Context, rng RevenueRange) (*RevenueReport, error) {
	orders, err := s.orders.ListConfirmed(ctx, rng.From, rng.To)
	if err != nil {
		return nil, fmt.Errorf("list confirmed orders: %w", err)
	}
	return AggregateRevenue(orders, s.conv, rng)
}

// AggregateRevenue reduces confirmed orders into totals in the converter's
// display currency. Orders that are not confirmed, or whose confirmation falls
// outside rng, are ignored. An empty input yields a zero report.
func AggregateRevenue(orders []model.Order, conv *money.Converter, rng RevenueRange) (*RevenueReport, error) {
	report := &RevenueReport{
		DisplayCurrency: conv.Display(),
		ByMethod:        map[model.PaymentMethod]MethodRevenue{},
	}

	for _, o := range orders {
		if o.ConfirmationStatus != model.ConfirmationConfirmed {
			continue
		}
		if o.ConfirmedAt != nil && !rng.Contains(*o.ConfirmedAt) {
			continue
		}

		amount, err := conv.Convert(o.TotalAmount, o.Currency)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", o.ID, err)
		}

		report.Total += amount
		report.Count++
		m := report.ByMethod[o.PaymentMethod]
		m.Count++
		m.Total += amount
		report.ByMethod[o.PaymentMethod] = m
	}

	if report.Count > 0 {
		report.Average = decimal.NewFromInt(report.Total).
			Div(decimal.NewFromInt(int64(report.Count))).
			Round(0).
			IntPart()
	}
	return report, nil
}
