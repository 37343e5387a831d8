package query

import (
	"strconv"
	"strings"
)

// Index field names shared by the engines and the query.
const (
	FieldName         = "name"
	FieldDescription  = "description"
	FieldCategoryName = "category_name"
	FieldCategoryID   = "category_id"
	FieldPrice        = "price"
)

// TextFields are searched by free text, most relevant first.
var TextFields = []Field{
	{Name: FieldName, Boost: 3},
	{Name: FieldDescription, Boost: 1},
	{Name: FieldCategoryName, Boost: 2},
}

// Build assembles the boolean query for a parsed search. categoryID is the
// raw request value; anything that is not an integer is ignored.
func Build(p Parsed, categoryID string) Query {
	var q Query

	if p.Text != "" {
		q.Must = append(q.Must, MultiMatch{Text: p.Text, Fields: TextFields, Fuzziness: "AUTO"})
	}
	if id, ok := ParseCategoryID(categoryID); ok {
		q.Must = append(q.Must, Term{Field: FieldCategoryID, Value: id})
	}
	if p.MinPrice != nil || p.MaxPrice != nil {
		q.Filter = append(q.Filter, Range{Field: FieldPrice, GTE: p.MinPrice, LTE: p.MaxPrice})
	}

	return q
}

// ParseCategoryID parses a category filter value.
func ParseCategoryID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
