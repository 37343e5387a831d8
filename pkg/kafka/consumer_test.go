package kafka

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "catalog.product.written"

func kafkaMessage(topic string, partition int, offset int64, value []byte) kafka.Message {
	return kafka.Message{Topic: topic, Partition: partition, Offset: offset, Value: value}
}

func eventMessage(t *testing.T, offset int64) kafka.Message {
	t.Helper()
	e, err := NewEvent(testTopic, "1", "catalog-search", productWritten{ProductID: 1})
	require.NoError(t, err)
	raw, err := e.Marshal()
	require.NoError(t, err)
	return kafkaMessage(testTopic, 0, offset, raw)
}

func runConsumer(t *testing.T, c *Consumer, r *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-r.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain messages")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := newFakeReader(eventMessage(t, 1), eventMessage(t, 2))
	metrics := newTestMetrics()
	var calls atomic.Int32
	c := newConsumer(r, testTopic, func(context.Context, *Event) error {
		calls.Add(1)
		return nil
	}, nil, metrics, discardLogger())

	runConsumer(t, c, r)

	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, r.commits(), 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.processed.WithLabelValues(testTopic)))
}

func TestConsumer_RetriesThenDeadLetters(t *testing.T) {
	r := newFakeReader(eventMessage(t, 5))
	dlq := &fakeDLQ{}
	metrics := newTestMetrics()
	var calls atomic.Int32
	c := newConsumer(r, testTopic, func(context.Context, *Event) error {
		calls.Add(1)
		return errors.New("index unavailable")
	}, dlq, metrics, discardLogger())
	c.backoff = time.Millisecond

	runConsumer(t, c, r)

	assert.Equal(t, int32(maxHandlerAttempts), calls.Load())
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, int64(5), dlq.msgs[0].Offset)
	assert.Len(t, r.commits(), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.failed.WithLabelValues(testTopic)))
}

func TestConsumer_RecoversOnRetry(t *testing.T) {
	r := newFakeReader(eventMessage(t, 1))
	dlq := &fakeDLQ{}
	var calls atomic.Int32
	c := newConsumer(r, testTopic, func(context.Context, *Event) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	}, dlq, newTestMetrics(), discardLogger())
	c.backoff = time.Millisecond

	runConsumer(t, c, r)

	assert.Equal(t, int32(2), calls.Load())
	assert.Empty(t, dlq.msgs)
}

func TestConsumer_UndecodableMessageIsDeadLettered(t *testing.T) {
	r := newFakeReader(kafkaMessage(testTopic, 0, 9, []byte("{garbage")))
	dlq := &fakeDLQ{}
	c := newConsumer(r, testTopic, func(context.Context, *Event) error {
		t.Error("handler must not be called")
		return nil
	}, dlq, newTestMetrics(), discardLogger())

	runConsumer(t, c, r)

	assert.Len(t, dlq.msgs, 1)
	assert.Len(t, r.commits(), 1)
}
