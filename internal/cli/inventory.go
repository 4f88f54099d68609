package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"roofmart/internal/database"
	"roofmart/internal/service"
)

var (
	invName     string
	invLocation string
	invQuantity int
	invVersion  int
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Inspect and adjust warehouse stock",
}

var inventoryAddCmd = &cobra.Command{
	Use:   "add <sku>",
	Short: "Register a stock item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB, err := inventoryService(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		item, err := svc.Add(cmd.Context(), args[0], invName, invLocation, invQuantity)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d (version %d)\n", item.SKU, item.Quantity, item.Version)
		return nil
	},
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stock items",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB, err := inventoryService(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		items, err := svc.List(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SKU\tNAME\tLOCATION\tQTY\tVERSION")
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", it.SKU, it.Name, it.Location, it.Quantity, it.Version)
		}
		return tw.Flush()
	},
}

var inventoryAdjustCmd = &cobra.Command{
	Use:   "adjust <sku> <delta>",
	Short: "Change stock by delta, optionally guarded by --expect-version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("delta must be an integer: %w", err)
		}

		svc, closeDB, err := inventoryService(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		item, err := svc.Adjust(cmd.Context(), args[0], delta, invVersion)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d (version %d)\n", item.SKU, item.Quantity, item.Version)
		return nil
	},
}

func init() {
	inventoryAddCmd.Flags().StringVar(&invName, "name", "", "item name")
	inventoryAddCmd.Flags().StringVar(&invLocation, "location", "", "warehouse location")
	inventoryAddCmd.Flags().IntVarP(&invQuantity, "quantity", "q", 0, "initial quantity")

	inventoryAdjustCmd.Flags().IntVar(&invVersion, "expect-version", service.AnyVersion, "expected version (-1 skips the check)")

	inventoryCmd.AddCommand(inventoryAddCmd, inventoryListCmd, inventoryAdjustCmd)
}

func inventoryService(cmd *cobra.Command) (*service.InventoryService, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	db, err := openDB(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return service.NewInventoryService(db), func() { database.CloseDB(db) }, nil
}
