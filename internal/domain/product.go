package domain

import (
	"github.com/shopspring/decimal"
)

// Product is a catalog item as stored in the authoritative database.
type Product struct {
	ID          int64
	Name        string
	Description string
	ImageURL    string
	Price       decimal.Decimal
	Quantity    int
	CategoryID  int64
}

// ProductInput carries the writable fields of a product. PUT replaces all of
// them.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
	Price       decimal.Decimal `json:"price" validate:"gte=0,lt=100000000"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	CategoryID  int64           `json:"category_id" validate:"required,gt=0"`
}

// Apply copies the input fields onto p, rounding the price to cents.
func (in ProductInput) Apply(p *Product) {
	p.Name = in.Name
	p.Description = in.Description
	p.ImageURL = in.ImageURL
	p.Price = in.Price.Round(2)
	p.Quantity = in.Quantity
	p.CategoryID = in.CategoryID
}
