package main

import (
	"errors"
	"fmt"

	"bargain-backend/config"
	"bargain-backend/db"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the MySQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				for _, stmt := range db.Statements() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt)
				}
				return nil
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.MySQL.Enabled() {
				return errors.New("MYSQL_HOST is not set")
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			conn, err := db.Open(cmd.Context(), dbConfig(cfg))
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.Migrate(cmd.Context(), conn, logger); err != nil {
				return err
			}
			logger.Info("migration done", zap.String("database", cfg.MySQL.Database))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the statements instead of running them")
	return cmd
}
