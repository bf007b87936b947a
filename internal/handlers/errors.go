package handlers

import (
	"errors"

	"shoply/internal/services"

	"github.com/gofiber/fiber/v2"
)

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// ConsistencyError keeps its full message: it means a payment was captured
// without a recorded order, and the client must see that verbatim.
func respondServiceError(c *fiber.Ctx, err error) error {
	var validationErr *services.ValidationError
	var notFoundErr *services.NotFoundError
	var backendErr *services.BackendError
	var paymentErr *services.PaymentError
	var consistencyErr *services.ConsistencyError

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   validationErr.Error(),
		})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Not found",
			"error":   notFoundErr.Error(),
		})
	case errors.As(err, &consistencyErr):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Payment captured, order recording failed. Contact support.",
			"error":   consistencyErr.Error(),
		})
	case errors.As(err, &paymentErr):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"message":  "Payment was not completed",
			"error":    paymentErr.Error(),
			"canceled": paymentErr.Canceled,
		})
	case errors.As(err, &backendErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": "Storage backend error",
			"error":   backendErr.Error(),
		})
	case errors.Is(err, services.ErrIllegalTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Checkout is not in a state that allows this operation",
			"error":   err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal error",
			"error":   err.Error(),
		})
	}
}
