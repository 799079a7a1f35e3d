package main

import (
	"github.com/spf13/cobra"

	"spa-booking-backend/internal/db"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "creates or updates the database schema and exits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			gormDB, err := db.Open(&cfg.Database)
			if err != nil {
				return err
			}
			if sqlDB, err := gormDB.DB(); err == nil {
				defer sqlDB.Close()
			}
			return db.Migrate(gormDB, log)
		},
	}
}
