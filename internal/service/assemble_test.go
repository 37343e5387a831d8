package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/pkg/pagination"
)

func ids(products []domain.Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestAssembler_Ranked_KeepsIndexOrderAndDropsStale(t *testing.T) {
	store := newMemProducts(
		newProduct(5, 1, "Five", "", "10"),
		newProduct(9, 1, "Nine", "", "10"),
	)
	metrics := newTestMetrics()
	a := NewAssembler(store, metrics, newTestLogger())

	page, err := a.Ranked(context.Background(), IndexHits{IDs: []int64{5, 3, 9}, Total: 3}, pagination.New(1, 9))
	require.NoError(t, err)

	assert.Equal(t, []int64{5, 9}, ids(page.Results))
	assert.Equal(t, 3, page.Total, "total stays the index count")
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.Pages)
	assert.Equal(t, 1, store.reads, "products are loaded in one read")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.staleRefs))
}

func TestAssembler_Ranked_ReverseOrder(t *testing.T) {
	store := newMemProducts(
		newProduct(1, 1, "One", "", "1"),
		newProduct(2, 1, "Two", "", "1"),
		newProduct(3, 1, "Three", "", "1"),
	)
	a := NewAssembler(store, newTestMetrics(), newTestLogger())

	page, err := a.Ranked(context.Background(), IndexHits{IDs: []int64{3, 2, 1}, Total: 30}, pagination.New(2, 9))
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, ids(page.Results))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 4, page.Pages)
}

func TestAssembler_Ranked_EmptyHits(t *testing.T) {
	a := NewAssembler(newMemProducts(), newTestMetrics(), newTestLogger())

	page, err := a.Ranked(context.Background(), IndexHits{}, pagination.New(1, 9))
	require.NoError(t, err)
	assert.NotNil(t, page.Results)
	assert.Empty(t, page.Results)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 1, page.Pages)
}

func TestAssembler_Ranked_StoreError(t *testing.T) {
	store := newMemProducts()
	store.err = errors.New("db down")
	a := NewAssembler(store, newTestMetrics(), newTestLogger())

	_, err := a.Ranked(context.Background(), IndexHits{IDs: []int64{1}, Total: 1}, pagination.New(1, 9))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rehydrate index hits")
}

func TestAssembler_Materialized(t *testing.T) {
	a := NewAssembler(newMemProducts(), newTestMetrics(), newTestLogger())
	products := []domain.Product{newProduct(2, 1, "b", "", "1"), newProduct(1, 1, "a", "", "1")}

	page := a.Materialized(products, 19, pagination.New(3, 9))
	assert.Equal(t, []int64{2, 1}, ids(page.Results))
	assert.Equal(t, 19, page.Total)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 3, page.Pages)
}

func TestReorder(t *testing.T) {
	tests := []struct {
		name    string
		ids     []int64
		stored  []int64
		want    []int64
		missing int
	}{
		{name: "all present", ids: []int64{3, 1, 2}, stored: []int64{1, 2, 3}, want: []int64{3, 1, 2}},
		{name: "stale middle", ids: []int64{5, 3, 9}, stored: []int64{5, 9}, want: []int64{5, 9}, missing: 1},
		{name: "all stale", ids: []int64{4, 6}, stored: nil, want: []int64{}, missing: 2},
		{name: "no ids", ids: nil, stored: []int64{1}, want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stored []domain.Product
			for _, id := range tt.stored {
				stored = append(stored, domain.Product{ID: id})
			}
			got, missing := reorder(tt.ids, stored)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, tt.missing, missing)
		})
	}
}
