package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"roofmart/internal/service"
)

type RevenueReporter interface {
	Report(ctx context.Context, rng service.RevenueRange) (*service.RevenueReport, error)
}

// RevenueHandler reports confirmed revenue. from and to accept RFC 3339 or
// plain dates; a plain "to" date is inclusive.
func RevenueHandler(rev RevenueReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := parseRangeTime(r.URL.Query().Get("from"), false)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		to, err := parseRangeTime(r.URL.Query().Get("to"), true)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		report, err := rev.Report(r.Context(), service.RevenueRange{From: from, To: to})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func parseRangeTime(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}
