package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productWritten struct {
	ProductID int64 `json:"product_id"`
}

func TestNewEvent(t *testing.T) {
	e, err := NewEvent("catalog.product.written", "42", "catalog-search", productWritten{ProductID: 42})
	require.NoError(t, err)

	assert.Len(t, e.ID, 36)
	assert.Equal(t, "catalog.product.written", e.Type)
	assert.Equal(t, "42", e.Key)
	assert.Equal(t, "catalog-search", e.Source)
	assert.WithinDuration(t, time.Now().UTC(), e.OccurredAt, 2*time.Second)
	assert.JSONEq(t, `{"product_id":42}`, string(e.Data))
}

func TestNewEvent_UnmarshalablePayload(t *testing.T) {
	_, err := NewEvent("x", "1", "catalog-search", make(chan int))
	assert.Error(t, err)
}

func TestUnmarshalEvent(t *testing.T) {
	e, err := NewEvent("catalog.product.written", "7", "catalog-search", productWritten{ProductID: 7})
	require.NoError(t, err)
	raw, err := e.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)

	var payload productWritten
	require.NoError(t, got.Decode(&payload))
	assert.Equal(t, int64(7), payload.ProductID)
}

func TestUnmarshalEvent_Rejects(t *testing.T) {
	_, err := UnmarshalEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = UnmarshalEvent([]byte(`{"event_id":"1","data":{}}`))
	assert.ErrorContains(t, err, "missing event_type")
}
