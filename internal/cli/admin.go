package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"roofmart/internal/database"
	"roofmart/internal/service"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin profiles",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin profile",
	Long: `Create a profile with admin rights.

Examples:
  roofmart admin create --email owner@example.com --password 's3cret-pass'`,
	RunE: runAdminCreate,
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "admin email (required)")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "admin password (required)")
	adminCreateCmd.Flags().StringVar(&adminName, "name", "", "full name")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")

	adminCmd.AddCommand(adminCreateCmd)
}

func runAdminCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openDB(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)

	profile, err := service.NewAuthService(db).Register(cmd.Context(), service.Registration{
		Email:    adminEmail,
		Password: adminPassword,
		FullName: adminName,
		IsAdmin:  true,
	})
	if errors.Is(err, service.ErrLoginExists) {
		return fmt.Errorf("profile %s already exists", adminEmail)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", profile.Email, profile.ID)
	return nil
}
