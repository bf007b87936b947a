package handlers

import (
	"log"

	"shoply/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CheckoutHandler handles HTTP requests for the checkout flow.
type CheckoutHandler struct {
	service *services.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(service *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
	}
}

// RegisterRoutes registers the checkout routes. The router must already be
// auth-gated; checkout is only available to signed-in users.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	checkoutRoutes := router.Group("/checkout")
	checkoutRoutes.Post("/", h.HandleBegin)
	checkoutRoutes.Post("/complete", h.HandleComplete)
	checkoutRoutes.Post("/fail", h.HandleFail)
}

// HandleBegin validates the checkout form, authorizes the amount with the
// payment gateway and returns the order reference the widget is invoked with.
func (h *CheckoutHandler) HandleBegin(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req services.BeginCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing checkout request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	session, err := h.service.Begin(c.Context(), services.Identity{UserID: userID}, req)
	if err != nil {
		log.Printf("Error beginning checkout for user %s: %v", userID, err)
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"order_reference": session.OrderReference,
		"amount":          session.Amount,
		"currency":        session.Currency,
		"subtotal":        session.Subtotal,
		"shipping_cost":   session.ShippingCost,
		"tax":             session.Tax,
		"total":           session.Total,
	})
}

// HandleComplete handles the widget's success callback: the order is
// persisted, then the cart is cleared.
func (h *CheckoutHandler) HandleComplete(c *fiber.Ctx) error {
	var req struct {
		OrderReference string `json:"order_reference"`
		PaymentID      string `json:"payment_id"`
		Signature      string `json:"signature"`
	}
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing checkout completion body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	order, err := h.service.CompletePayment(c.Context(), req.OrderReference, req.PaymentID, req.Signature)
	if err != nil {
		log.Printf("Error completing checkout %s: %v", req.OrderReference, err)
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// HandleFail records the widget's failure or cancellation callback. The cart
// is left untouched so the user can retry.
func (h *CheckoutHandler) HandleFail(c *fiber.Ctx) error {
	var req struct {
		OrderReference string `json:"order_reference"`
		Reason         string `json:"reason"`
		Canceled       bool   `json:"canceled"`
	}
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing checkout failure body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	err := h.service.FailPayment(req.OrderReference, req.Reason, req.Canceled)
	if err != nil {
		log.Printf("Checkout %s failed: %v", req.OrderReference, err)
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Checkout failure recorded"})
}
