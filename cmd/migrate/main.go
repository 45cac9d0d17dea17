package main

// Run database migrations:
//   go run ./cmd/migrate          apply pending migrations
//   go run ./cmd/migrate down     revert the latest migration

import (
	"context"
	"log"
	"os"

	"github.com/BilalEnesS/doc-panel/internal/shared/config"
	"github.com/BilalEnesS/doc-panel/internal/shared/storage/db"
	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel, cfg.LogPretty, os.Stdout)
	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer sqlDB.Close()

	run := db.RunMigrations
	if len(os.Args) > 1 && os.Args[1] == "down" {
		run = db.RollbackMigration
	}
	if err := run(ctx, sqlDB); err != nil {
		sqlDB.Close()
		log.Fatalf("migration failed: %v", err)
	}
}
