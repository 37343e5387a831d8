package domain

import "github.com/utafrali/catalog-search/pkg/pagination"

// PageSize is the fixed number of products per search page.
const PageSize = pagination.DefaultPageSize

// SearchRequest is a product search as received from a client. CategoryID
// is kept raw; non-numeric values are ignored downstream.
type SearchRequest struct {
	Text       string
	CategoryID string
	Page       pagination.Params
}

// SearchResultPage is one page of search results in relevance order.
type SearchResultPage struct {
	Results []Product
	Total   int
	Page    int
	Pages   int
}
