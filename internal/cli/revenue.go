package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"roofmart/internal/database"
	"roofmart/internal/model"
	"roofmart/internal/money"
	"roofmart/internal/service"
)

var (
	revenueFrom string
	revenueTo   string
)

var revenueCmd = &cobra.Command{
	Use:   "revenue",
	Short: "Print confirmed revenue in the display currency",
	Long: `Print revenue from confirmed orders, converted to the display currency.

Examples:
  roofmart revenue
  roofmart revenue --from 2024-01-01 --to 2024-03-31`,
	RunE: runRevenue,
}

func init() {
	revenueCmd.Flags().StringVar(&revenueFrom, "from", "", "first day, YYYY-MM-DD")
	revenueCmd.Flags().StringVar(&revenueTo, "to", "", "last day (inclusive), YYYY-MM-DD")
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return &t, nil
}

func revenueRange(from, to string) (service.RevenueRange, error) {
	var rng service.RevenueRange
	var err error
	if rng.From, err = parseDay(from); err != nil {
		return rng, err
	}
	if rng.To, err = parseDay(to); err != nil {
		return rng, err
	}
	if rng.To != nil {
		end := rng.To.AddDate(0, 0, 1)
		rng.To = &end
	}
	return rng, nil
}

func printRevenue(w io.Writer, rep *service.RevenueReport, rates []string) {
	cur := rep.DisplayCurrency
	fmt.Fprintf(w, "Confirmed orders: %d\n", rep.Count)
	fmt.Fprintf(w, "Total:            %s\n", money.Format(rep.Total, cur))
	fmt.Fprintf(w, "Average:          %s\n", money.Format(rep.Average, cur))

	methods := make([]string, 0, len(rep.ByMethod))
	for m := range rep.ByMethod {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)
	for _, m := range methods {
		mr := rep.ByMethod[model.PaymentMethod(m)]
		fmt.Fprintf(w, "  %-10s %4d  %s\n", m, mr.Count, money.Format(mr.Total, cur))
	}
	if len(rates) > 0 {
		fmt.Fprintf(w, "Converted from:   %s\n", strings.Join(rates, ", "))
	}
}

func runRevenue(cmd *cobra.Command, args []string) error {
	rng, err := revenueRange(revenueFrom, revenueTo)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	conv, err := cfg.Converter()
	if err != nil {
		return err
	}
	db, err := openDB(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)

	rep, err := service.NewRevenueService(service.NewOrderService(db), conv).Report(cmd.Context(), rng)
	if err != nil {
		return err
	}
	printRevenue(cmd.OutOrStdout(), rep, cfg.RateCodes())
	return nil
}
