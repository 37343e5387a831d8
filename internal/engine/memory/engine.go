package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
	"github.com/utafrali/catalog-search/internal/query"
)

// Engine is an in-memory engine.SearchEngine for development and tests.
// Text matching is case-insensitive token containment; relevance is the sum
// of the boosts of the fields each token occurs in.
type Engine struct {
	mu          sync.RWMutex
	docs        map[int64]domain.IndexedDocument
	unavailable error
}

var _ engine.SearchEngine = (*Engine)(nil)

// New creates an empty in-memory engine.
func New() *Engine {
	return &Engine{docs: make(map[int64]domain.IndexedDocument)}
}

// SetUnavailable makes every call fail with err until it is called with nil.
func (e *Engine) SetUnavailable(err error) {
	e.mu.Lock()
	e.unavailable = err
	e.mu.Unlock()
}

// Len returns the number of stored documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// Get returns the stored document for id.
func (e *Engine) Get(id int64) (domain.IndexedDocument, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	doc, ok := e.docs[id]
	return doc, ok
}

type scored struct {
	id    int64
	score float64
}

// Search implements engine.SearchEngine.
func (e *Engine) Search(_ context.Context, q query.Query, offset, limit int) (engine.Hits, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.unavailable != nil {
		return engine.Hits{}, e.unavailable
	}

	matched := make([]scored, 0)
	for id, doc := range e.docs {
		score, ok := evaluate(doc, q)
		if ok {
			matched = append(matched, scored{id: id, score: score})
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].id < matched[j].id
	})

	total := len(matched)
	start := min(max(offset, 0), total)
	end := min(start+max(limit, 0), total)

	ids := make([]int64, 0, end-start)
	for _, m := range matched[start:end] {
		ids = append(ids, m.id)
	}
	return engine.Hits{IDs: ids, Total: total, HasTotal: true}, nil
}

// Upsert implements engine.SearchEngine.
func (e *Engine) Upsert(_ context.Context, doc domain.IndexedDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unavailable != nil {
		return e.unavailable
	}
	e.docs[doc.ID] = doc
	return nil
}

// BulkUpsert implements engine.SearchEngine. It never reports per-document
// failures.
func (e *Engine) BulkUpsert(_ context.Context, docs []domain.IndexedDocument) ([]engine.BulkFailure, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unavailable != nil {
		return nil, e.unavailable
	}
	for _, doc := range docs {
		e.docs[doc.ID] = doc
	}
	return nil, nil
}

// EnsureIndex implements engine.SearchEngine.
func (e *Engine) EnsureIndex(context.Context) error { return e.err() }

// Refresh implements engine.SearchEngine.
func (e *Engine) Refresh(context.Context) error { return e.err() }

// Ping implements engine.SearchEngine.
func (e *Engine) Ping(context.Context) error { return e.err() }

func (e *Engine) err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.unavailable
}

// evaluate reports whether doc satisfies q and its relevance score.
func evaluate(doc domain.IndexedDocument, q query.Query) (float64, bool) {
	var score float64
	for _, c := range q.Must {
		s, ok := matchClause(doc, c)
		if !ok {
			return 0, false
		}
		score += s
	}
	for _, c := range q.Filter {
		if _, ok := matchClause(doc, c); !ok {
			return 0, false
		}
	}
	return score, true
}

func matchClause(doc domain.IndexedDocument, c query.Clause) (float64, bool) {
	switch v := c.(type) {
	case query.MultiMatch:
		var score float64
		for _, token := range strings.Fields(strings.ToLower(v.Text)) {
			for _, f := range v.Fields {
				if strings.Contains(strings.ToLower(fieldText(doc, f.Name)), token) {
					score += boost(f)
				}
			}
		}
		return score, score > 0

	case query.Term:
		return 1, v.Field == query.FieldCategoryID && doc.CategoryID == v.Value

	case query.Range:
		if v.Field != query.FieldPrice {
			return 0, false
		}
		if v.GTE != nil && doc.Price < v.GTE.InexactFloat64() {
			return 0, false
		}
		if v.LTE != nil && doc.Price > v.LTE.InexactFloat64() {
			return 0, false
		}
		return 0, true
	}
	return 0, false
}

func fieldText(doc domain.IndexedDocument, field string) string {
	switch field {
	case query.FieldName:
		return doc.Name
	case query.FieldDescription:
		return doc.Description
	case query.FieldCategoryName:
		return doc.CategoryName
	}
	return ""
}

func boost(f query.Field) float64 {
	if f.Boost == 0 {
		return 1
	}
	return f.Boost
}
