// Command reindex rebuilds the product search index from the database.
//
// It is safe to run repeatedly and while the server is serving traffic:
// documents are upserted by product id.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/utafrali/catalog-search/internal/app"
	"github.com/utafrali/catalog-search/internal/config"
	"github.com/utafrali/catalog-search/internal/indexsync"
	"github.com/utafrali/catalog-search/pkg/logger"
)

const (
	batchSizeFlag = "batch-size"
	failOnErrFlag = "strict"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	batchSize := pflag.IntP(batchSizeFlag, "b", cfg.ReindexBatchSize, "products read and written per batch")
	strict := pflag.Bool(failOnErrFlag, false, "exit non-zero when any document was rejected")
	pflag.Parse()

	log := logger.New(app.ServiceName+"-reindex", cfg.LogLevel)
	if *batchSize < 1 {
		log.Error("invalid flag", slog.String("flag", "--"+batchSizeFlag), slog.Int("value", *batchSize))
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := app.RunReindex(ctx, cfg, *batchSize, log)
	if err != nil {
		if indexsync.IsLocked(err) {
			log.Error("another reindex is already running")
		} else {
			log.Error("reindex failed", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}

	log.Info("reindex finished",
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", len(report.Failed)),
		slog.Duration("duration", report.Duration),
	)
	if *strict && len(report.Failed) > 0 {
		os.Exit(1)
	}
}
