package services

import (
	"errors"
	"log"

	"shoply/internal/models"
	"shoply/internal/repositories"
)

// ProductService handles business logic related to the catalog.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// ListProducts retrieves products matching the query params.
func (s *ProductService) ListProducts(params repositories.ProductListParams) ([]models.Product, error) {
	products, err := s.repo.List(params)
	if err != nil {
		return nil, &BackendError{Op: "list products", Err: err}
	}
	return products, nil
}

// GetProductBySlug retrieves a single product by its URL slug.
func (s *ProductService) GetProductBySlug(slug string) (*models.Product, error) {
	product, err := s.repo.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &NotFoundError{Resource: "product", ID: slug}
		}
		return nil, &BackendError{Op: "get product", Err: err}
	}
	return product, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(id string) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &NotFoundError{Resource: "product", ID: id}
		}
		return nil, &BackendError{Op: "get product", Err: err}
	}
	return product, nil
}

// RelatedProducts suggests other active products from the same category. It
// is a non-critical read: any failure degrades to an empty result instead of
// blocking the page.
func (s *ProductService) RelatedProducts(product *models.Product, limit int) []models.Product {
	if product == nil || product.CategoryID == "" {
		return nil
	}
	products, err := s.repo.List(repositories.ProductListParams{
		Status: models.ProductStatusActive,
		SortBy: "created_at",
		Limit:  limit + 1,
	})
	if err != nil {
		log.Printf("Related products lookup failed for %s: %v", product.ID, err)
		return nil
	}
	related := make([]models.Product, 0, limit)
	for _, p := range products {
		if p.ID == product.ID || p.CategoryID != product.CategoryID {
			continue
		}
		related = append(related, p)
		if len(related) == limit {
			break
		}
	}
	return related
}

// ListCategories retrieves all categories.
func (s *ProductService) ListCategories() ([]models.Category, error) {
	categories, err := s.repo.ListCategories()
	if err != nil {
		return nil, &BackendError{Op: "list categories", Err: err}
	}
	return categories, nil
}

// CreateProduct creates a new product.
func (s *ProductService) CreateProduct(product *models.Product) error {
	if product.Status == "" {
		product.Status = models.ProductStatusDraft
	}
	if err := s.repo.Create(product); err != nil {
		return &BackendError{Op: "create product", Err: err}
	}
	return nil
}

// UpdateProduct updates an existing product.
func (s *ProductService) UpdateProduct(product *models.Product) error {
	err := s.repo.Update(product)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &NotFoundError{Resource: "product", ID: product.ID}
		}
		return &BackendError{Op: "update product", Err: err}
	}
	return nil
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(id string) error {
	err := s.repo.Delete(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &NotFoundError{Resource: "product", ID: id}
		}
		return &BackendError{Op: "delete product", Err: err}
	}
	return nil
}
