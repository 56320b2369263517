package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/postplanner/post-planner-bot/internal/app"
	"github.com/postplanner/post-planner-bot/internal/config"
	"github.com/postplanner/post-planner-bot/internal/infra/db"
	"github.com/postplanner/post-planner-bot/pkg/logger"
)

func main() {
	// context + signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(&cfg.Logger)

	if err := db.Migrate(&cfg.Postgres); err != nil {
		log.Error("migrations failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pool, err := db.NewPool(&cfg.Postgres)
	if err != nil {
		log.Error("postgres connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// build application
	application, err := app.NewApp(*cfg, log, pool)
	if err != nil {
		log.Error("app init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// run application
	if err := application.Run(ctx); err != nil {
		log.Error("application stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("post-planner-bot stopped")
}
