package repositories

import (
	"shoply/internal/models"
)

// ProductListParams are the catalog query primitives: filter, sort and
// offset/limit pagination.
type ProductListParams struct {
	Status       string // filter by lifecycle status; empty means all
	CategorySlug string
	Tag          string
	FeaturedOnly bool
	Search       string // case-insensitive match against the product name

	SortBy   string // one of: created_at, price, name; empty means created_at
	SortDesc bool

	Offset int
	Limit  int // zero means no limit
}

// ProductRepository defines the interface for catalog data access.
type ProductRepository interface {
	List(params ProductListParams) ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	GetBySlug(slug string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
	ListCategories() ([]models.Category, error)
}
