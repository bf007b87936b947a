package models

import (
	"time"

	"gorm.io/datatypes"
)

// Order fulfillment statuses.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Payment statuses.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Address is a shipping or billing address collected at checkout. Orders hold
// a JSON snapshot of it so later profile edits do not alter order history.
type Address struct {
	Name  string `json:"name" validate:"required"`
	Line1 string `json:"address" validate:"required"`
	City  string `json:"city" validate:"required"`
	Zip   string `json:"zip" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

// Order is created only after the payment widget reports success, with an
// immutable snapshot of the purchased lines taken at creation time.
type Order struct {
	ID              string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string         `json:"user_id" gorm:"index;type:varchar(36)"`
	OrderNumber     string         `json:"order_number" gorm:"uniqueIndex;type:varchar(32)"`
	Status          string         `json:"status" gorm:"type:varchar(16)"`
	TotalAmount     float64        `json:"total_amount"`
	ShippingAddress datatypes.JSON `json:"shipping_address"`
	BillingAddress  datatypes.JSON `json:"billing_address"`
	PaymentStatus   string         `json:"payment_status" gorm:"type:varchar(16)"`
	PaymentMethod   string         `json:"payment_method" gorm:"type:varchar(32)"`
	PaymentID       string         `json:"payment_id" gorm:"type:varchar(64)"`
	Lines           []OrderLine    `json:"lines,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// OrderLine is a denormalized copy of a cart line at order-creation time.
// Product name, variant options and unit price are frozen here so catalog
// edits never rewrite historical orders.
type OrderLine struct {
	ID             string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID        string         `json:"order_id" gorm:"index;type:varchar(36)"`
	ProductID      string         `json:"product_id" gorm:"type:varchar(36)"`
	VariantID      string         `json:"variant_id,omitempty" gorm:"type:varchar(36)"`
	ProductName    string         `json:"product_name"`
	VariantOptions datatypes.JSON `json:"variant_options,omitempty"`
	UnitPrice      float64        `json:"unit_price"`
	Quantity       int            `json:"quantity"`
}

// ValidOrderStatus reports whether s is a known fulfillment status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}
