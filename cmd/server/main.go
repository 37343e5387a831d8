// Command server runs the catalog search HTTP API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/catalog-search/internal/app"
	"github.com/utafrali/catalog-search/internal/config"
	"github.com/utafrali/catalog-search/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(app.ServiceName, cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error("catalog search service exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("catalog search service stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	log.Info("starting catalog search service",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("search_engine", cfg.SearchEngine),
		slog.String("sync_mode", cfg.SyncMode),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		return err
	}

	// Run blocks until SIGINT/SIGTERM and then drains in-flight work.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return application.Run(ctx)
}
