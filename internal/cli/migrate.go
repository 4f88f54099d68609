package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"roofmart/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer database.CloseDB(db)

		slog.Info("schema is up to date")
		return nil
	},
}
