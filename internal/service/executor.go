package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/catalog-search/internal/engine"
	"github.com/utafrali/catalog-search/internal/query"
)

// Fallback reasons.
const (
	ReasonTimeout     = "timeout"
	ReasonCircuitOpen = "circuit_open"
	ReasonDeadline    = "deadline_expired"
	ReasonError       = "error"
)

// DefaultIndexTimeout bounds an index call when ExecutorConfig.Timeout is
// unset.
const DefaultIndexTimeout = 2 * time.Second

// Outcome is the result of asking the index for a page of hits. It is either
// IndexHits or FallbackRequired.
type Outcome interface {
	outcome()
}

// IndexHits is a successful index response: product ids in relevance order
// and the total number of matches.
type IndexHits struct {
	IDs   []int64
	Total int
}

// FallbackRequired reports that the index could not answer. Reason is one of
// the Reason constants.
type FallbackRequired struct {
	Reason string
	Cause  error
}

func (IndexHits) outcome()        {}
func (FallbackRequired) outcome() {}

// BreakerConfig holds the search index circuit breaker settings.
type BreakerConfig struct {
	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32
	// Interval clears the failure counts while closed. Zero never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open before trying again.
	Timeout time.Duration
	// FailureRatio trips the breaker once MinRequests have been seen.
	FailureRatio float64
	MinRequests  uint32
}

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	Timeout time.Duration
	Breaker BreakerConfig
}

// Executor runs structured queries against the search index. It never
// returns an error: every failure becomes FallbackRequired.
type Executor struct {
	engine  engine.SearchEngine
	breaker *gobreaker.CircuitBreaker[engine.Hits]
	timeout time.Duration
	metrics *Metrics
	logger  *slog.Logger
}

// NewExecutor creates an Executor over eng.
func NewExecutor(eng engine.SearchEngine, cfg ExecutorConfig, metrics *Metrics, logger *slog.Logger) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultIndexTimeout
	}
	settings := gobreaker.Settings{
		Name:        "search-index",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.Breaker.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.Breaker.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.breakerState.Set(stateToFloat(to))
		},
	}

	return &Executor{
		engine:  eng,
		breaker: gobreaker.NewCircuitBreaker[engine.Hits](settings),
		timeout: cfg.Timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Execute asks the index for the hits of q between offset and offset+limit.
//
// The index call is bounded by the executor timeout or the caller's deadline,
// whichever is earlier. Caller cancellation does not interrupt a call already
// in flight; a caller whose deadline has already passed skips the index.
func (e *Executor) Execute(ctx context.Context, q query.Query, offset, limit int) Outcome {
	if err := ctx.Err(); err != nil {
		return FallbackRequired{Reason: ReasonDeadline, Cause: err}
	}

	deadline := time.Now().Add(e.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	callCtx, cancel := context.WithDeadline(context.WithoutCancel(ctx), deadline)
	defer cancel()

	start := time.Now()
	hits, err := e.breaker.Execute(func() (engine.Hits, error) {
		return e.engine.Search(callCtx, q, offset, limit)
	})
	elapsed := time.Since(start)

	if err != nil {
		reason := classify(callCtx, err)
		e.metrics.indexLatency.WithLabelValues(reason).Observe(elapsed.Seconds())
		return FallbackRequired{Reason: reason, Cause: err}
	}
	e.metrics.indexLatency.WithLabelValues("ok").Observe(elapsed.Seconds())

	total := hits.Total
	if !hits.HasTotal {
		total = len(hits.IDs)
	}
	return IndexHits{IDs: hits.IDs, Total: total}
}

// State returns the breaker state.
func (e *Executor) State() gobreaker.State {
	return e.breaker.State()
}

func classify(callCtx context.Context, err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ReasonCircuitOpen
	case errors.Is(err, context.DeadlineExceeded), callCtx.Err() != nil:
		return ReasonTimeout
	default:
		return ReasonError
	}
}
