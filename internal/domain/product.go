package domain

import "github.com/shopspring/decimal"

const (
	MissingProductName     = "Product Not Found"
	MissingProductCategory = "Unknown"
	MissingProductImage    = "/placeholder-product.svg"
)

type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Image    string
	Category string
	Stock    int
}

// ProductSummary is the product detail shown next to an order line.
type ProductSummary struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Category string          `json:"category"`
}

func (p *Product) Summary() ProductSummary {
	return ProductSummary{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.Image,
		Category: p.Category,
	}
}

// MissingProduct stands in for a product deleted after it was ordered.
func MissingProduct(ref string) ProductSummary {
	return ProductSummary{
		ID:       ref,
		Name:     MissingProductName,
		Price:    decimal.Zero,
		Image:    MissingProductImage,
		Category: MissingProductCategory,
	}
}

// User is the subset of a storefront account needed for order views.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
