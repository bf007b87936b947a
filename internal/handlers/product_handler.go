package handlers

import (
	"fmt"
	"log"

	"shoply/internal/models"
	"shoply/internal/repositories"
	"shoply/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers catalog routes. Reads are public; writes run
// behind the supplied auth and admin middleware.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, authMW, adminMW fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/:slug", h.HandleGetProductBySlug)
	productRoutes.Post("/", authMW, adminMW, h.HandleCreateProduct)
	productRoutes.Put("/:id", authMW, adminMW, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", authMW, adminMW, h.HandleDeleteProduct)

	router.Get("/categories", h.HandleListCategories)
}

// HandleListProducts lists products with filter/sort/pagination query params.
// Public listings only ever see active products.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	params := repositories.ProductListParams{
		Status:       models.ProductStatusActive,
		CategorySlug: c.Query("category"),
		Tag:          c.Query("tag"),
		FeaturedOnly: c.QueryBool("featured"),
		Search:       c.Query("q"),
		SortBy:       c.Query("sort", "created_at"),
		SortDesc:     c.Query("order", "desc") == "desc",
		Offset:       c.QueryInt("offset", 0),
		Limit:        c.QueryInt("limit", 24),
	}

	products, err := h.service.ListProducts(params)
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"products": products,
		"offset":   params.Offset,
		"limit":    params.Limit,
	})
}

// HandleGetProductBySlug retrieves a single product by slug, with related
// product suggestions. The suggestions are a non-critical read and may be
// empty.
func (h *ProductHandler) HandleGetProductBySlug(c *fiber.Ctx) error {
	slug := c.Params("slug")
	product, err := h.service.GetProductBySlug(slug)
	if err != nil {
		log.Printf("Error getting product by slug %s: %v", slug, err)
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"product": product,
		"related": h.service.RelatedProducts(product, 4),
	})
}

// HandleListCategories retrieves all categories.
func (h *ProductHandler) HandleListCategories(c *fiber.Ctx) error {
	categories, err := h.service.ListCategories()
	if err != nil {
		log.Printf("Error listing categories: %v", err)
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"categories": categories})
}

// HandleCreateProduct creates a new product (admin only).
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		log.Printf("Error parsing product request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(product); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	if err := h.service.CreateProduct(&product); err != nil {
		log.Printf("Error creating product: %v", err)
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct updates an existing product (admin only).
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		log.Printf("Error parsing product request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	product.ID = c.Params("id")

	if err := h.service.UpdateProduct(&product); err != nil {
		log.Printf("Error updating product %s: %v", product.ID, err)
		return respondServiceError(c, err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product (admin only).
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteProduct(id); err != nil {
		log.Printf("Error deleting product %s: %v", id, err)
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Product %s deleted successfully", id),
	})
}
