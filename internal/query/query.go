// Package query turns free-text product searches into a structured,
// backend-agnostic boolean query.
package query

import "github.com/shopspring/decimal"

// Clause is one condition of a boolean query. The concrete types are
// MultiMatch, Term and Range.
type Clause interface {
	clause()
}

// Field is a searchable text field with a relevance boost.
type Field struct {
	Name  string
	Boost float64
}

// MultiMatch matches Text against several fields, tolerating typos.
type MultiMatch struct {
	Text      string
	Fields    []Field
	Fuzziness string
}

// Term requires an exact integer value.
type Term struct {
	Field string
	Value int64
}

// Range bounds a numeric field. A nil bound is open.
type Range struct {
	Field string
	GTE   *decimal.Decimal
	LTE   *decimal.Decimal
}

func (MultiMatch) clause() {}
func (Term) clause()       {}
func (Range) clause()      {}

// Query is a boolean query. Must clauses affect relevance, Filter clauses
// only restrict. A query with neither matches every document.
type Query struct {
	Must   []Clause
	Filter []Clause
}

// MatchAll reports whether q places no restriction on documents.
func (q Query) MatchAll() bool {
	return len(q.Must) == 0 && len(q.Filter) == 0
}

// Criteria is the flat form of a Query used by stores that cannot rank.
type Criteria struct {
	Text       string
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

// Criteria flattens q. It is the inverse of Build for queries Build produced.
func (q Query) Criteria() Criteria {
	var c Criteria
	for _, cl := range append(append([]Clause(nil), q.Must...), q.Filter...) {
		switch v := cl.(type) {
		case MultiMatch:
			c.Text = v.Text
		case Term:
			if v.Field == FieldCategoryID {
				id := v.Value
				c.CategoryID = &id
			}
		case Range:
			if v.Field == FieldPrice {
				c.MinPrice, c.MaxPrice = v.GTE, v.LTE
			}
		}
	}
	return c
}
