package http

import (
	"github.com/utafrali/catalog-search/internal/domain"
)

// productResponse is the JSON form of a product. Price is a decimal string
// with two places.
type productResponse struct {
	ProductID   int64  `json:"product_id"`
	Name        string `json:"name"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
	CategoryID  int64  `json:"category_id"`
}

func toProductResponse(p *domain.Product) productResponse {
	return productResponse{
		ProductID:   p.ID,
		Name:        p.Name,
		ImageURL:    p.ImageURL,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Quantity:    p.Quantity,
		CategoryID:  p.CategoryID,
	}
}

func toProductResponses(products []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	return out
}

type categoryResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	ImageURL    *string `json:"image_url"`
	Description *string `json:"description"`
}

func toCategoryResponses(categories []domain.Category) []categoryResponse {
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{
			ID:          c.ID,
			Name:        c.Name,
			ImageURL:    c.ImageURL,
			Description: c.Description,
		})
	}
	return out
}

// searchResponse is the body of the product search endpoint. Its shape does
// not depend on which search path produced it.
type searchResponse struct {
	Results []productResponse `json:"results"`
	Total   int               `json:"total"`
	Page    int               `json:"page"`
	Pages   int               `json:"pages"`
}

func toSearchResponse(page *domain.SearchResultPage) searchResponse {
	return searchResponse{
		Results: toProductResponses(page.Results),
		Total:   page.Total,
		Page:    page.Page,
		Pages:   page.Pages,
	}
}
