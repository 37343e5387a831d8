package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// DeadLetterer receives messages whose handler kept failing.
type DeadLetterer interface {
	DeadLetter(ctx context.Context, msg kafka.Message, cause error) error
}

// DLQTopic names the dead-letter topic for topic.
func DLQTopic(topic string) string {
	return topic + ".dlq"
}

// DLQProducer republishes failed messages to "<topic>.dlq" with headers
// describing where they came from and why they failed.
type DLQProducer struct {
	writer  messageWriter
	group   string
	metrics *Metrics
	logger  *slog.Logger
}

// NewDLQProducer creates a dead-letter producer for consumer group.
func NewDLQProducer(brokers []string, group string, metrics *Metrics, logger *slog.Logger) *DLQProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &DLQProducer{writer: w, group: group, metrics: metrics, logger: logger}
}

// DeadLetter implements DeadLetterer.
func (d *DLQProducer) DeadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	topic := DLQTopic(msg.Topic)

	headers := make([]kafka.Header, 0, len(msg.Headers)+5)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "dlq.original_topic", Value: []byte(msg.Topic)},
		kafka.Header{Key: "dlq.original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "dlq.original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "dlq.consumer_group", Value: []byte(d.group)},
	)
	if cause != nil {
		headers = append(headers, kafka.Header{Key: "dlq.error", Value: []byte(cause.Error())})
	}

	err := d.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	d.metrics.deadLettered.WithLabelValues(msg.Topic).Inc()

	d.logger.WarnContext(ctx, "message sent to dead-letter topic",
		slog.String("dlq_topic", topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return nil
}

// Close closes the underlying writer.
func (d *DLQProducer) Close() error {
	return d.writer.Close()
}
