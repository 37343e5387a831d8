// Package event carries product writes to the search index over Kafka.
package event

import (
	"github.com/shopspring/decimal"

	"github.com/utafrali/catalog-search/internal/domain"
)

const (
	// TopicProductWritten carries one event per committed product write,
	// keyed by product id.
	TopicProductWritten = "catalog.product.written"

	// TypeProductWritten is the event type of TopicProductWritten messages.
	TypeProductWritten = "catalog.product.written"

	source = "catalog-search"
)

// ProductWrittenData is the payload of a product written event. It holds the
// full product as committed.
type ProductWrittenData struct {
	ProductID   int64           `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	CategoryID  int64           `json:"category_id"`
}

func newProductWrittenData(p *domain.Product) ProductWrittenData {
	return ProductWrittenData{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		Quantity:    p.Quantity,
		CategoryID:  p.CategoryID,
	}
}

// Product returns the product the payload describes.
func (d ProductWrittenData) Product() *domain.Product {
	return &domain.Product{
		ID:          d.ProductID,
		Name:        d.Name,
		Description: d.Description,
		ImageURL:    d.ImageURL,
		Price:       d.Price,
		Quantity:    d.Quantity,
		CategoryID:  d.CategoryID,
	}
}
