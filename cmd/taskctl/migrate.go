package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"taskmind-backend/internal/config"
	"taskmind-backend/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables or indexes for the configured storage driver",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	src, log, err := loadSource()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	cfg := src.Config()

	ctx := cmd.Context()
	if cfg.Storage == config.StorageMongo {
		client, database, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		if err := db.EnsureMongoIndexes(ctx, database); err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("mongo indexes ensured on %s", cfg.MongoDB), color.FgGreen)
		return nil
	}

	database, err := db.Connect(cfg.ConnString())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer database.Close()
	if err := db.Migrate(ctx, database); err != nil {
		return err
	}
	printStatus("✓", fmt.Sprintf("schema applied to %s", cfg.DBName), color.FgGreen)
	return nil
}
