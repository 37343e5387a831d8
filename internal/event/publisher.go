package event

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/indexsync"
	"github.com/utafrali/catalog-search/pkg/kafka"
	"github.com/utafrali/catalog-search/pkg/logger"
)

// publishTimeout bounds one enqueue triggered by a write.
const publishTimeout = 5 * time.Second

// eventPublisher is the subset of *kafka.Producer used by Publisher.
type eventPublisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// Publisher is a write hook that enqueues product writes for asynchronous
// indexing. Events are keyed by product id so a consumer sees the writes of
// one product in commit order.
type Publisher struct {
	producer eventPublisher
	metrics  *indexsync.Metrics
	logger   *slog.Logger
}

var _ indexsync.ProductWriteHook = (*Publisher)(nil)

// NewPublisher creates a Publisher.
func NewPublisher(producer eventPublisher, metrics *indexsync.Metrics, logger *slog.Logger) *Publisher {
	return &Publisher{producer: producer, metrics: metrics, logger: logger}
}

// OnProductWritten enqueues a product written event. Failures are logged and
// counted, never returned.
func (p *Publisher) OnProductWritten(ctx context.Context, product *domain.Product) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	log := logger.WithContext(ctx, p.logger)

	evt, err := kafka.NewEvent(TypeProductWritten, strconv.FormatInt(product.ID, 10), source, newProductWrittenData(product))
	if err != nil {
		p.metrics.RecordFailure(indexsync.PathQueue)
		log.ErrorContext(ctx, "failed to build product event",
			slog.Int64("product_id", product.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	evt.CorrelationID = logger.CorrelationIDFromContext(ctx)

	if err := p.producer.Publish(ctx, TopicProductWritten, evt); err != nil {
		p.metrics.RecordFailure(indexsync.PathQueue)
		log.WarnContext(ctx, "index synchronization failed",
			slog.Int64("product_id", product.ID),
			slog.String("path", indexsync.PathQueue),
			slog.String("error", err.Error()),
		)
	}
}
