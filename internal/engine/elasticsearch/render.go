package elasticsearch

import (
	"fmt"
	"strconv"

	"github.com/utafrali/catalog-search/internal/query"
)

// renderQuery converts q into the Elasticsearch query DSL.
func renderQuery(q query.Query) map[string]any {
	if q.MatchAll() {
		return map[string]any{"match_all": map[string]any{}}
	}

	boolQuery := map[string]any{}
	if len(q.Must) > 0 {
		boolQuery["must"] = renderClauses(q.Must)
	}
	if len(q.Filter) > 0 {
		boolQuery["filter"] = renderClauses(q.Filter)
	}
	return map[string]any{"bool": boolQuery}
}

func renderClauses(clauses []query.Clause) []any {
	out := make([]any, 0, len(clauses))
	for _, c := range clauses {
		out = append(out, renderClause(c))
	}
	return out
}

func renderClause(c query.Clause) map[string]any {
	switch v := c.(type) {
	case query.MultiMatch:
		fields := make([]string, 0, len(v.Fields))
		for _, f := range v.Fields {
			fields = append(fields, boosted(f))
		}
		mm := map[string]any{
			"query":  v.Text,
			"fields": fields,
		}
		if v.Fuzziness != "" {
			mm["fuzziness"] = v.Fuzziness
		}
		return map[string]any{"multi_match": mm}

	case query.Term:
		return map[string]any{"term": map[string]any{v.Field: v.Value}}

	case query.Range:
		bounds := map[string]any{}
		if v.GTE != nil {
			bounds["gte"] = v.GTE.InexactFloat64()
		}
		if v.LTE != nil {
			bounds["lte"] = v.LTE.InexactFloat64()
		}
		return map[string]any{"range": map[string]any{v.Field: bounds}}

	default:
		panic(fmt.Sprintf("elasticsearch: unsupported clause %T", c))
	}
}

func boosted(f query.Field) string {
	if f.Boost == 0 || f.Boost == 1 {
		return f.Name
	}
	return f.Name + "^" + strconv.FormatFloat(f.Boost, 'f', -1, 64)
}
