package elasticsearch

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
	"github.com/utafrali/catalog-search/internal/query"
)

type recorded struct {
	method string
	path   string
	body   string
}

// fakeCluster answers Elasticsearch REST calls from a route table.
type fakeCluster struct {
	mu       sync.Mutex
	requests []recorded
	routes   map[string]func(w http.ResponseWriter)
}

func (c *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.requests = append(c.requests, recorded{r.Method, r.URL.Path, string(body)})
	c.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if h, ok := c.routes[r.Method+" "+r.URL.Path]; ok {
		h(w)
		return
	}
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, `{"error":{"type":"route_missing","reason":"`+r.URL.Path+`"},"status":404}`)
}

func (c *fakeCluster) last() recorded {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

func respond(status int, body string) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func newTestEngine(t *testing.T, routes map[string]func(http.ResponseWriter)) (*Engine, *fakeCluster) {
	t.Helper()
	cluster := &fakeCluster{routes: routes}
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	e, err := New(Config{URL: srv.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return e, cluster
}

func TestSearch_DecodesIDsAndTotal(t *testing.T) {
	e, cluster := newTestEngine(t, map[string]func(http.ResponseWriter){
		"POST /products/_search": respond(http.StatusOK, `{"hits":{"total":{"value":42,"relation":"eq"},"hits":[{"_id":"5"},{"_id":"3"},{"_id":"9"}]}}`),
	})

	hits, err := e.Search(context.Background(), query.Build(query.Parse("lamp"), ""), 9, 9)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 3, 9}, hits.IDs)
	assert.Equal(t, 42, hits.Total)
	assert.True(t, hits.HasTotal)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(cluster.last().body), &sent))
	assert.Equal(t, float64(9), sent["from"])
	assert.Equal(t, float64(9), sent["size"])
	assert.Equal(t, false, sent["_source"])
}

func TestSearch_MissingTotal(t *testing.T) {
	e, _ := newTestEngine(t, map[string]func(http.ResponseWriter){
		"POST /products/_search": respond(http.StatusOK, `{"hits":{"hits":[{"_id":"1"}]}}`),
	})

	hits, err := e.Search(context.Background(), query.Query{}, 0, 9)
	require.NoError(t, err)
	assert.False(t, hits.HasTotal)
	assert.Equal(t, []int64{1}, hits.IDs)
}

func TestSearch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusServiceUnavailable, `{"error":{"type":"cluster_block_exception","reason":"blocked"},"status":503}`, "cluster_block_exception"},
		{"undecodable body", http.StatusOK, `{"hits":`, "decode response"},
		{"non-numeric id", http.StatusOK, `{"hits":{"hits":[{"_id":"abc"}]}}`, "non-numeric document id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, map[string]func(http.ResponseWriter){
				"POST /products/_search": respond(tt.status, tt.body),
			})
			_, err := e.Search(context.Background(), query.Query{}, 0, 9)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestUpsert(t *testing.T) {
	e, cluster := newTestEngine(t, map[string]func(http.ResponseWriter){
		"PUT /products/_doc/12": respond(http.StatusOK, `{"result":"updated"}`),
	})

	err := e.Upsert(context.Background(), domain.IndexedDocument{ID: 12, Name: "Desk", Price: 99.5, CategoryName: "Office", CategoryID: 2})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"name":"Desk","description":"","price":99.5,"category_name":"Office","category_id":2}`,
		cluster.last().body)
}

func TestBulkUpsert_ReportsItemFailures(t *testing.T) {
	e, cluster := newTestEngine(t, map[string]func(http.ResponseWriter){
		"POST /products/_bulk": respond(http.StatusOK, `{"errors":true,"items":[
			{"index":{"_id":"1","status":200}},
			{"index":{"_id":"2","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad price"}}}
		]}`),
	})

	failures, err := e.BulkUpsert(context.Background(), []domain.IndexedDocument{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}})
	require.NoError(t, err)
	assert.Equal(t, []engine.BulkFailure{{ID: 2, Reason: "mapper_parsing_exception: bad price"}}, failures)

	sc := bufio.NewScanner(strings.NewReader(cluster.last().body))
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_index":"products","_id":"1"}}`, lines[0])
	assert.JSONEq(t, `{"index":{"_index":"products","_id":"2"}}`, lines[2])
}

func TestBulkUpsert_Empty(t *testing.T) {
	e, cluster := newTestEngine(t, nil)
	failures, err := e.BulkUpsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, failures)
	assert.Empty(t, cluster.requests)
}

func TestEnsureIndex(t *testing.T) {
	t.Run("creates when missing", func(t *testing.T) {
		e, cluster := newTestEngine(t, map[string]func(http.ResponseWriter){
			"HEAD /products": respond(http.StatusNotFound, ``),
			"PUT /products":  respond(http.StatusOK, `{"acknowledged":true}`),
		})
		require.NoError(t, e.EnsureIndex(context.Background()))
		assert.JSONEq(t, indexMapping, cluster.last().body)
	})

	t.Run("leaves existing index", func(t *testing.T) {
		e, cluster := newTestEngine(t, map[string]func(http.ResponseWriter){
			"HEAD /products": respond(http.StatusOK, ``),
		})
		require.NoError(t, e.EnsureIndex(context.Background()))
		assert.Len(t, cluster.requests, 1)
	})

	t.Run("tolerates concurrent creation", func(t *testing.T) {
		e, _ := newTestEngine(t, map[string]func(http.ResponseWriter){
			"HEAD /products": respond(http.StatusNotFound, ``),
			"PUT /products":  respond(http.StatusBadRequest, `{"error":{"type":"resource_already_exists_exception","reason":"exists"},"status":400}`),
		})
		assert.NoError(t, e.EnsureIndex(context.Background()))
	})
}

func TestPing(t *testing.T) {
	e, _ := newTestEngine(t, map[string]func(http.ResponseWriter){
		"HEAD /": respond(http.StatusOK, ``),
	})
	assert.NoError(t, e.Ping(context.Background()))
}
