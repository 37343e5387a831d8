package engine

import (
	"context"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/query"
)

// Hits is one page of matching document ids in relevance order. HasTotal is
// false when the backend did not report a total hit count.
type Hits struct {
	IDs      []int64
	Total    int
	HasTotal bool
}

// BulkFailure records a document the backend rejected during a bulk write.
type BulkFailure struct {
	ID     int64
	Reason string
}

// SearchEngine is the search index handle. Implementations must be safe for
// concurrent use.
type SearchEngine interface {
	// Search returns ids of documents matching q, skipping offset and
	// returning at most limit ids.
	Search(ctx context.Context, q query.Query, offset, limit int) (Hits, error)

	// Upsert creates or replaces one document under doc.ID.
	Upsert(ctx context.Context, doc domain.IndexedDocument) error

	// BulkUpsert writes docs in one round trip. Per-document rejections are
	// returned as failures; err is reserved for whole-request errors.
	BulkUpsert(ctx context.Context, docs []domain.IndexedDocument) ([]BulkFailure, error)

	// EnsureIndex creates the index with its fixed schema when missing.
	EnsureIndex(ctx context.Context) error

	// Refresh makes prior writes visible to Search.
	Refresh(ctx context.Context) error

	// Ping checks reachability.
	Ping(ctx context.Context) error
}
