package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"roofmart/internal/config"
	"roofmart/internal/database"
)

var (
	cfgFile string
	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "roofmart",
		Short: "Roofing storefront backend",
		Long: `roofmart serves the storefront API and carries the payment lifecycle of
every order from checkout to admin confirmation.

Configuration comes from defaults, an optional YAML file, environment
variables and flags, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringP("database", "d", "", "database URI")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(revenueCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// loadConfig reads the config and installs the JSON logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	return cfg, nil
}

// openDB connects and makes sure the schema exists.
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.NewDB(ctx, cfg.DatabaseURI)
	if err != nil {
		return nil, err
	}
	if err := database.InitSchema(ctx, db); err != nil {
		database.CloseDB(db)
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}
