package indexsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
	"github.com/utafrali/catalog-search/internal/repository"
)

// DefaultBatchSize is the number of products read and bulk-written per step.
const DefaultBatchSize = 500

// ReindexReport summarizes one completed reindex run.
type ReindexReport struct {
	Indexed  int
	Failed   []engine.BulkFailure
	Duration time.Duration
}

// Reindexer rebuilds every index document from the relational store.
// Re-running it produces the same documents under the same ids.
type Reindexer struct {
	engine     engine.SearchEngine
	products   repository.ProductRepository
	categories repository.CategoryRepository
	lock       Lock
	batchSize  int
	metrics    *Metrics
	logger     *slog.Logger

	wg sync.WaitGroup
}

// NewReindexer creates a Reindexer. A non-positive batchSize uses
// DefaultBatchSize.
func NewReindexer(
	eng engine.SearchEngine,
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	lock Lock,
	batchSize int,
	metrics *Metrics,
	logger *slog.Logger,
) *Reindexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Reindexer{
		engine:     eng,
		products:   products,
		categories: categories,
		lock:       lock,
		batchSize:  batchSize,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run reindexes synchronously. It returns ErrLocked when another run is in
// progress.
func (r *Reindexer) Run(ctx context.Context) (*ReindexReport, error) {
	release, err := r.lock.TryAcquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return r.run(ctx)
}

// Start takes the lock and reindexes in the background, detached from ctx's
// cancellation. It returns ErrLocked when another run is in progress.
func (r *Reindexer) Start(ctx context.Context) error {
	release, err := r.lock.TryAcquire(ctx)
	if err != nil {
		return err
	}

	bg := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer release()
		if _, err := r.run(bg); err != nil {
			r.logger.ErrorContext(bg, "background reindex failed", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Wait blocks until background runs started with Start have finished.
func (r *Reindexer) Wait() {
	r.wg.Wait()
}

func (r *Reindexer) run(ctx context.Context) (_ *ReindexReport, err error) {
	start := time.Now()
	defer func() {
		result := "success"
		if err != nil {
			result = "error"
		}
		r.metrics.reindexRuns.WithLabelValues(result).Inc()
		r.metrics.reindexDuration.Observe(time.Since(start).Seconds())
	}()

	r.logger.InfoContext(ctx, "reindex started", slog.Int("batch_size", r.batchSize))

	if err := r.engine.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	names, err := r.categories.NameMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("load category names: %w", err)
	}

	report := &ReindexReport{Failed: []engine.BulkFailure{}}
	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("reindex interrupted after product %d: %w", afterID, err)
		}

		batch, err := r.products.ScanAfter(ctx, afterID, r.batchSize)
		if err != nil {
			return nil, fmt.Errorf("read products after %d: %w", afterID, err)
		}
		if len(batch) == 0 {
			break
		}

		failed := r.writeBatch(ctx, batch, names)
		report.Indexed += len(batch) - len(failed)
		report.Failed = append(report.Failed, failed...)

		afterID = batch[len(batch)-1].ID
		if len(batch) < r.batchSize {
			break
		}
	}

	if err := r.engine.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("refresh index: %w", err)
	}

	report.Duration = time.Since(start)
	r.logger.InfoContext(ctx, "reindex completed",
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", len(report.Failed)),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

// writeBatch indexes one batch and returns the documents that did not make
// it. A failed bulk request fails every document in the batch; the run moves
// on to the next batch either way.
func (r *Reindexer) writeBatch(ctx context.Context, batch []domain.Product, names map[int64]string) []engine.BulkFailure {
	docs := make([]domain.IndexedDocument, 0, len(batch))
	for i := range batch {
		docs = append(docs, domain.NewIndexedDocument(&batch[i], names[batch[i].CategoryID]))
	}

	failed, err := r.engine.BulkUpsert(ctx, docs)
	if err != nil {
		r.logger.WarnContext(ctx, "bulk request failed during reindex",
			slog.Int64("first_id", batch[0].ID),
			slog.Int64("last_id", batch[len(batch)-1].ID),
			slog.String("error", err.Error()),
		)
		r.metrics.failures.WithLabelValues(PathReindex).Add(float64(len(docs)))
		failed = make([]engine.BulkFailure, 0, len(docs))
		for _, d := range docs {
			failed = append(failed, engine.BulkFailure{ID: d.ID, Reason: err.Error()})
		}
		return failed
	}

	for _, f := range failed {
		r.logger.WarnContext(ctx, "document rejected during reindex",
			slog.Int64("product_id", f.ID),
			slog.String("reason", f.Reason),
		)
	}
	r.metrics.failures.WithLabelValues(PathReindex).Add(float64(len(failed)))
	r.metrics.synced.WithLabelValues(PathReindex).Add(float64(len(docs) - len(failed)))
	return failed
}

// IsLocked reports whether err means a reindex is already running.
func IsLocked(err error) bool {
	return errors.Is(err, ErrLocked)
}
