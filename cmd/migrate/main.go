// Package main applies the embedded database migrations.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/archon-research/stl-oracles/db/migrations"
	"github.com/archon-research/stl-oracles/db/migrator"
	"github.com/archon-research/stl-oracles/internal/adapters/outbound/postgres"
	"github.com/archon-research/stl-oracles/internal/pkg/env"
)

func main() {
	logger := env.NewLogger(os.Stdout, "migrate")
	slog.SetDefault(logger)

	connStr := env.Get("DATABASE_URL", "")
	if connStr == "" {
		logger.Error("required environment variable not set", "key", "DATABASE_URL")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.OpenPool(ctx, postgres.DefaultDBConfig(connStr), logger)
	if err != nil {
		logger.Error("connecting to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	applied, err := migrator.New(pool, migrations.Files, logger).ApplyAll(ctx)
	if err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	logger.Info("all migrations up to date", "applied", len(applied))
}
