package repositories

import (
	"shoply/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Create persists the order and every one of its lines in a single
	// transaction. Either all of it is durably recorded or none of it is.
	Create(order *models.Order) error
	GetByID(id string) (*models.Order, error)
	ListByUser(userID string) ([]models.Order, error)
	UpdateStatus(id string, status string) error
}
