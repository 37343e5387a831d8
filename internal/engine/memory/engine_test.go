package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/query"
)

func seed(t *testing.T) *Engine {
	t.Helper()
	e := New()
	docs := []domain.IndexedDocument{
		{ID: 1, Name: "Trail Running Shoe", Description: "light", Price: 1800, CategoryName: "Footwear", CategoryID: 1},
		{ID: 2, Name: "Leather Boot", Description: "for running errands", Price: 4200, CategoryName: "Footwear", CategoryID: 1},
		{ID: 3, Name: "Desk Lamp", Description: "warm light", Price: 900, CategoryName: "Home", CategoryID: 2},
		{ID: 4, Name: "Running Socks", Description: "pack of three", Price: 300, CategoryName: "Apparel", CategoryID: 3},
	}
	_, err := e.BulkUpsert(context.Background(), docs)
	require.NoError(t, err)
	return e
}

func search(t *testing.T, e *Engine, raw, category string, offset, limit int) ([]int64, int) {
	t.Helper()
	hits, err := e.Search(context.Background(), query.Build(query.Parse(raw), category), offset, limit)
	require.NoError(t, err)
	assert.True(t, hits.HasTotal)
	return hits.IDs, hits.Total
}

func TestSearch_MatchAllOrdersByID(t *testing.T) {
	ids, total := search(t, seed(t), "", "", 0, 9)
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)
	assert.Equal(t, 4, total)
}

func TestSearch_NameOutranksDescription(t *testing.T) {
	ids, total := search(t, seed(t), "running", "", 0, 9)
	assert.Equal(t, []int64{1, 4, 2}, ids)
	assert.Equal(t, 3, total)
}

func TestSearch_CategoryAndPrice(t *testing.T) {
	ids, _ := search(t, seed(t), "under 2000", "1", 0, 9)
	assert.Equal(t, []int64{1}, ids)

	ids, _ = search(t, seed(t), "between 500 and 2000", "", 0, 9)
	assert.Equal(t, []int64{1, 3}, ids)
}

func TestSearch_CategoryNameIsSearchable(t *testing.T) {
	ids, _ := search(t, seed(t), "footwear", "", 0, 9)
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestSearch_Pagination(t *testing.T) {
	e := seed(t)
	ids, total := search(t, e, "", "", 2, 9)
	assert.Equal(t, []int64{3, 4}, ids)
	assert.Equal(t, 4, total)

	ids, total = search(t, e, "", "", 10, 9)
	assert.Empty(t, ids)
	assert.Equal(t, 4, total)
}

func TestUpsert_Replaces(t *testing.T) {
	e := seed(t)
	require.NoError(t, e.Upsert(context.Background(), domain.IndexedDocument{ID: 3, Name: "Floor Lamp", CategoryID: 2}))

	doc, ok := e.Get(3)
	require.True(t, ok)
	assert.Equal(t, "Floor Lamp", doc.Name)
	assert.Equal(t, 4, e.Len())
}

func TestSetUnavailable(t *testing.T) {
	e := seed(t)
	down := errors.New("connection refused")
	e.SetUnavailable(down)

	_, err := e.Search(context.Background(), query.Query{}, 0, 9)
	assert.ErrorIs(t, err, down)
	assert.ErrorIs(t, e.Ping(context.Background()), down)
	assert.ErrorIs(t, e.Upsert(context.Background(), domain.IndexedDocument{ID: 9}), down)

	e.SetUnavailable(nil)
	assert.NoError(t, e.Ping(context.Background()))
}
