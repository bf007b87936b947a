package services

import (
	"errors"

	"shoply/internal/models"
	"shoply/internal/repositories"
)

// OrderService handles reads and lifecycle updates for recorded orders.
// Orders are created exclusively by the checkout flow.
type OrderService struct {
	repo repositories.OrderRepository
}

// NewOrderService creates a new OrderService.
func NewOrderService(repo repositories.OrderRepository) *OrderService {
	return &OrderService{
		repo: repo,
	}
}

// ListOrdersForUser retrieves the user's order history, newest first.
func (s *OrderService) ListOrdersForUser(userID string) ([]models.Order, error) {
	orders, err := s.repo.ListByUser(userID)
	if err != nil {
		return nil, &BackendError{Op: "list orders", Err: err}
	}
	return orders, nil
}

// GetOrderForUser retrieves a single order, but only for its owning user.
// Another user's order is indistinguishable from a missing one.
func (s *OrderService) GetOrderForUser(orderID, userID string) (*models.Order, error) {
	order, err := s.repo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: orderID}
		}
		return nil, &BackendError{Op: "get order", Err: err}
	}
	if order.UserID != userID {
		return nil, &NotFoundError{Resource: "order", ID: orderID}
	}
	return order, nil
}

// UpdateOrderStatus moves an order along the fulfillment lifecycle.
func (s *OrderService) UpdateOrderStatus(orderID, status string) error {
	if !models.ValidOrderStatus(status) {
		return &ValidationError{Field: "status", Reason: "unknown order status " + status}
	}
	err := s.repo.UpdateStatus(orderID, status)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &NotFoundError{Resource: "order", ID: orderID}
		}
		return &BackendError{Op: "update order status", Err: err}
	}
	return nil
}
