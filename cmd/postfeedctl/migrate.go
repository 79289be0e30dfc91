package main

import (
	"github.com/spf13/cobra"

	"github.com/d60-Lab/postfeed/internal/repository"
	"github.com/d60-Lab/postfeed/pkg/database"
	"github.com/d60-Lab/postfeed/pkg/logger"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.InitDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			if err := repository.AutoMigrate(db); err != nil {
				return err
			}
			logger.Info("schema migrated")
			return nil
		},
	}
}
