package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	gormlogger "gorm.io/gorm/logger"

	"github.com/campusmarket/marketplace/services/messaging-api/internal/config"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/database"
	"github.com/campusmarket/marketplace/services/messaging-api/internal/infrastructure/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(m *database.Migrator) error {
			return m.Up()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		return withMigrator(cmd, func(m *database.Migrator) error {
			return m.Down(steps)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(m *database.Migrator) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version: %d\n", v)
			if dirty {
				fmt.Fprintln(cmd.OutOrStdout(), "state: dirty")
			}
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)

	migrateDownCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
}

func withMigrator(cmd *cobra.Command, fn func(m *database.Migrator) error) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if dsn, _ := cmd.Flags().GetString("dsn"); dsn != "" {
		cfg.DatabaseURL = dsn
	}

	log := logger.New(cfg)
	db, err := database.Connect(database.Config{
		DSN:      cfg.DatabaseURL,
		LogLevel: gormlogger.Warn,
	})
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	m, err := database.NewMigrator(cmd.Context(), db, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Msg("close migrator")
		}
	}()

	return fn(m)
}
