package elasticsearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
	"github.com/utafrali/catalog-search/internal/query"
)

// Config holds the Elasticsearch connection settings.
type Config struct {
	URL                string
	Username           string
	Password           string
	InsecureSkipVerify bool
	Index              string
}

// Engine is the Elasticsearch-backed engine.SearchEngine.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

var _ engine.SearchEngine = (*Engine)(nil)

type searchResponse struct {
	Hits struct {
		Total *struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an engine for cfg. It does not contact the cluster; call
// EnsureIndex once the cluster is expected to be reachable.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	index := cfg.Index
	if index == "" {
		index = DefaultIndexName
	}

	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}
	if cfg.InsecureSkipVerify {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- opt-in for self-signed dev clusters
		esCfg.Transport = transport
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	return &Engine{client: client, indexName: index, logger: logger}, nil
}

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer drain(res)

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the index with the fixed mapping unless it exists.
// An existing index is left untouched.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: check index: %w", err)
	}
	drain(res)

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch: check index: unexpected status %s", res.Status())
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: create index: %w", err)
	}
	defer drain(res)

	if res.IsError() {
		reason := responseError(res)
		// Another instance may have created it between the two calls.
		if strings.Contains(reason, "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("elasticsearch: create index: %s", reason)
	}

	e.logger.InfoContext(ctx, "elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

// Search implements engine.SearchEngine. Only document ids are fetched.
func (e *Engine) Search(ctx context.Context, q query.Query, offset, limit int) (engine.Hits, error) {
	body, err := json.Marshal(map[string]any{
		"query":   renderQuery(q),
		"from":    offset,
		"size":    limit,
		"_source": false,
	})
	if err != nil {
		return engine.Hits{}, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(body)),
		e.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return engine.Hits{}, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer drain(res)

	if res.IsError() {
		return engine.Hits{}, fmt.Errorf("elasticsearch search: %s", responseError(res))
	}

	var resp searchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return engine.Hits{}, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	hits := engine.Hits{IDs: make([]int64, 0, len(resp.Hits.Hits))}
	for _, h := range resp.Hits.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			return engine.Hits{}, fmt.Errorf("elasticsearch search: non-numeric document id %q", h.ID)
		}
		hits.IDs = append(hits.IDs, id)
	}
	if resp.Hits.Total != nil {
		hits.Total = resp.Hits.Total.Value
		hits.HasTotal = true
	}
	return hits, nil
}

// Upsert implements engine.SearchEngine.
func (e *Engine) Upsert(ctx context.Context, doc domain.IndexedDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: marshal document: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(strconv.FormatInt(doc.ID, 10)),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert %d: %w", doc.ID, err)
	}
	defer drain(res)

	if res.IsError() {
		return fmt.Errorf("elasticsearch upsert %d: %s", doc.ID, responseError(res))
	}
	return nil
}

// BulkUpsert implements engine.SearchEngine using the _bulk API with one
// index action per document.
func (e *Engine) BulkUpsert(ctx context.Context, docs []domain.IndexedDocument) ([]engine.BulkFailure, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		action := map[string]any{"index": map[string]any{"_index": e.indexName, "_id": strconv.FormatInt(doc.ID, 10)}}
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk: encode action: %w", err)
		}
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk: encode document %d: %w", doc.ID, err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithIndex(e.indexName),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer drain(res)

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch bulk: %s", responseError(res))
	}

	var resp bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}
	if !resp.Errors {
		return nil, nil
	}

	var failures []engine.BulkFailure
	for _, item := range resp.Items {
		for _, result := range item {
			if result.Error == nil {
				continue
			}
			id, _ := strconv.ParseInt(result.ID, 10, 64)
			failures = append(failures, engine.BulkFailure{
				ID:     id,
				Reason: result.Error.Type + ": " + result.Error.Reason,
			})
		}
	}
	return failures, nil
}

// Refresh implements engine.SearchEngine.
func (e *Engine) Refresh(ctx context.Context) error {
	res, err := e.client.Indices.Refresh(
		e.client.Indices.Refresh.WithIndex(e.indexName),
		e.client.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch refresh: %w", err)
	}
	defer drain(res)

	if res.IsError() {
		return fmt.Errorf("elasticsearch refresh: %s", responseError(res))
	}
	return nil
}

// responseError describes a non-2xx response, preferring the error object
// in its body.
func responseError(res *esapi.Response) string {
	var errResp errorResponse
	if err := json.NewDecoder(res.Body).Decode(&errResp); err == nil && errResp.Error.Type != "" {
		return errResp.Error.Type + ": " + errResp.Error.Reason
	}
	return "unexpected status " + res.Status()
}

// drain discards and closes the body so the connection can be reused.
func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
