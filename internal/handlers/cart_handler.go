package handlers

import (
	"log"

	"shoply/internal/services"

	"github.com/gofiber/fiber/v2"
)

// deviceScopeHeader carries the guest device/browser scope. The client owns
// the value, exactly as it owns its local storage.
const deviceScopeHeader = "X-Device-ID"

// CartHandler handles HTTP requests for the cart.
type CartHandler struct {
	service *services.CartService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service: service,
	}
}

// RegisterRoutes registers cart routes behind the optional-auth middleware:
// signed-in callers act on their remote cart, guests on their device scope.
func (h *CartHandler) RegisterRoutes(router fiber.Router, optionalAuthMW fiber.Handler) {
	cartRoutes := router.Group("/cart", optionalAuthMW)
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Patch("/items/:id", h.HandleUpdateQuantity)
	cartRoutes.Delete("/items/:id", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Post("/merge", h.HandleMerge)
}

// identity builds the caller identity from the auth locals and the device
// scope header. The boolean is false when neither is present.
func identity(c *fiber.Ctx) (services.Identity, bool) {
	userID, _ := c.Locals("user_id").(string)
	id := services.Identity{
		UserID:   userID,
		DeviceID: c.Get(deviceScopeHeader),
	}
	if id.UserID == "" && id.DeviceID == "" {
		return id, false
	}
	return id, true
}

func respondMissingIdentity(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Guest requests require the " + deviceScopeHeader + " header",
	})
}

// HandleGetCart returns the cart read model for the caller.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return respondMissingIdentity(c)
	}

	cart, err := h.service.GetCart(id)
	if err != nil {
		log.Printf("Error loading cart: %v", err)
		return respondServiceError(c, err)
	}
	return c.JSON(cart)
}

// HandleAddItem adds a product (optionally a variant) to the caller's cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return respondMissingIdentity(c)
	}

	var req struct {
		ProductID string `json:"product_id"`
		VariantID string `json:"variant_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing add item request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	line, err := h.service.AddItem(id, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		log.Printf("Error adding cart item: %v", err)
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": line.Product.Name + " added to cart",
		"line":    line,
	})
}

// HandleUpdateQuantity replaces a line's quantity. Zero or negative values
// remove the line.
func (h *CartHandler) HandleUpdateQuantity(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return respondMissingIdentity(c)
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing update quantity request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.service.UpdateQuantity(id, c.Params("id"), req.Quantity); err != nil {
		log.Printf("Error updating cart item quantity: %v", err)
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Cart item updated"})
}

// HandleRemoveItem removes a line. Removing an already-removed line succeeds.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return respondMissingIdentity(c)
	}

	if err := h.service.RemoveItem(id, c.Params("id")); err != nil {
		log.Printf("Error removing cart item: %v", err)
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Item removed from cart"})
}

// HandleClearCart removes every line from the caller's cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	id, ok := identity(c)
	if !ok {
		return respondMissingIdentity(c)
	}

	if err := h.service.ClearCart(id); err != nil {
		log.Printf("Error clearing cart: %v", err)
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Cart cleared"})
}

// HandleMerge migrates the guest device cart into the signed-in user's cart.
// It requires an authenticated caller; the device scope comes from the
// request body so the sign-in flow can pass the scope it was using while the
// user was still a guest.
func (h *CartHandler) HandleMerge(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Cart merge requires authentication",
		})
	}

	var req struct {
		DeviceID string `json:"device_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing merge request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if req.DeviceID == "" {
		req.DeviceID = c.Get(deviceScopeHeader)
	}

	if err := h.service.MergeOnSignIn(req.DeviceID, userID); err != nil {
		log.Printf("Error merging cart for user %s: %v", userID, err)
		return respondServiceError(c, err)
	}

	cart, err := h.service.GetCart(services.Identity{UserID: userID})
	if err != nil {
		log.Printf("Error loading merged cart: %v", err)
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Cart merged",
		"cart":    cart,
	})
}
