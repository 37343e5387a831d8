package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/pkg/kafka"
	"github.com/utafrali/catalog-search/pkg/logger"
)

// applier writes one product's index document and reports failures.
type applier interface {
	Apply(ctx context.Context, p *domain.Product) error
}

// Handler applies product written events to the search index.
type Handler struct {
	sync   applier
	logger *slog.Logger
}

// NewHandler creates a Handler that indexes through sync.
func NewHandler(sync applier, logger *slog.Logger) *Handler {
	return &Handler{sync: sync, logger: logger}
}

// Handle implements kafka.Handler. Unknown event types are ignored; a
// returned error makes the consumer retry and eventually dead-letter.
func (h *Handler) Handle(ctx context.Context, evt *kafka.Event) error {
	if evt.Type != TypeProductWritten {
		h.logger.DebugContext(ctx, "ignoring event", slog.String("event_type", evt.Type))
		return nil
	}
	if evt.CorrelationID != "" {
		ctx = logger.WithCorrelationID(ctx, evt.CorrelationID)
	}

	var data ProductWrittenData
	if err := evt.Decode(&data); err != nil {
		return err
	}
	if data.ProductID <= 0 {
		return fmt.Errorf("product written event %s: missing product_id", evt.ID)
	}

	if err := h.sync.Apply(ctx, data.Product()); err != nil {
		return fmt.Errorf("apply product %d: %w", data.ProductID, err)
	}

	logger.WithContext(ctx, h.logger).DebugContext(ctx, "product indexed from event",
		slog.Int64("product_id", data.ProductID),
		slog.String("event_id", evt.ID),
	)
	return nil
}
