package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product lifecycle statuses. Only active products can be added to a cart
// or ordered.
const (
	ProductStatusActive   = "active"
	ProductStatusDraft    = "draft"
	ProductStatusArchived = "archived"
)

// Category groups products for browsing.
type Category struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string `json:"name" gorm:"type:varchar(100)" validate:"required,min=2,max=100"`
	Slug        string `json:"slug" gorm:"uniqueIndex;type:varchar(120)" validate:"required"`
	Description string `json:"description" validate:"omitempty,max=500"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	gorm.Model         // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// Product represents a catalog product.
type Product struct {
	ID           string           `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Slug         string           `json:"slug" gorm:"uniqueIndex;type:varchar(150)" validate:"required,max=150"`
	Name         string           `json:"name" validate:"required,min=3,max=150"`
	Description  string           `json:"description" validate:"omitempty,max=2000"`
	Price        float64          `json:"price" validate:"required,gt=0"`
	ComparePrice *float64         `json:"compare_price,omitempty" validate:"omitempty,gt=0"`
	CategoryID   string           `json:"category_id" gorm:"index;type:varchar(36)"`
	Inventory    int              `json:"inventory_quantity" validate:"gte=0"`
	Status       string           `json:"status" gorm:"type:varchar(16);default:draft" validate:"omitempty,oneof=active draft archived"`
	Featured     bool             `json:"featured"`
	Tags         datatypes.JSON   `json:"tags"`
	Images       datatypes.JSON   `json:"images"`
	Variants     []ProductVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	gorm.Model                    // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// IsActive reports whether the product may be added to a cart or ordered.
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// Variant returns the variant with the given ID, or nil if the product has no
// such variant.
func (p *Product) Variant(variantID string) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i]
		}
	}
	return nil
}

// ProductVariant is a purchasable variation of a product (e.g. size/color).
// Price and ComparePrice, when set, override the parent product's pricing.
type ProductVariant struct {
	ID           string         `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	ProductID    string         `json:"product_id" gorm:"index;type:varchar(36)" validate:"required"`
	Name         string         `json:"name" validate:"required,max=150"`
	SKU          string         `json:"sku,omitempty" gorm:"type:varchar(64)"`
	Price        *float64       `json:"price,omitempty" validate:"omitempty,gt=0"`
	ComparePrice *float64       `json:"compare_price,omitempty" validate:"omitempty,gt=0"`
	Inventory    int            `json:"inventory_quantity" validate:"gte=0"`
	Options      datatypes.JSON `json:"options"`
	CreatedAt    time.Time      `json:"created_at"`
}
