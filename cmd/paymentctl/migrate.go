package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tair/marketplace-payments/internal/payment"
	"github.com/tair/marketplace-payments/internal/payment/repository"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the payment tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			db, err := payment.OpenDatabase(cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := repository.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}
