package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nfcaccess/server/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and print the schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := loadConfig()

			// db.Open migrates before returning.
			sqlDB, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			v, err := db.Version(ctx, sqlDB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d\n", cfg.DBPath, v)
			return nil
		},
	}
}
