package domain

// IndexedDocument is the denormalized search-index projection of a Product.
// ID is the product id and the document's index key.
type IndexedDocument struct {
	ID           int64   `json:"-"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	CategoryName string  `json:"category_name"`
	CategoryID   int64   `json:"category_id"`
}

// NewIndexedDocument projects p. categoryName may be empty when the category
// could not be resolved.
func NewIndexedDocument(p *Product, categoryName string) IndexedDocument {
	return IndexedDocument{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price.InexactFloat64(),
		CategoryName: categoryName,
		CategoryID:   p.CategoryID,
	}
}
