package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/querydesk/querydesk/internal/demo/seed"
	"github.com/querydesk/querydesk/internal/query/mariadb"
)

func main() {
	cfg, err := seed.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load seed config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	db, err := mariadb.Open(connectCtx, mariadb.DBConfig{DSN: cfg.DSN, MaxOpenConns: 2, MaxIdleConns: 1})
	cancel()
	if err != nil {
		logger.Error("failed to connect to mariadb", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	seeder, err := seed.NewSeeder(db, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize seeder", slog.Any("error", err))
		os.Exit(1)
	}
	summary, err := seeder.Run(ctx)
	if err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seeding finished",
		slog.String("view", cfg.View),
		slog.Int("suppliers", summary.Suppliers),
		slog.Int("products", summary.Products),
		slog.Bool("skipped", summary.Skipped),
	)
}
