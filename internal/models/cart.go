package models

import "time"

// CartLine is a single cart entry. At most one line exists per
// (owner, product, variant) tuple; adding the same product/variant again
// increments the quantity of the existing line instead of inserting a
// duplicate.
//
// For authenticated users lines are stored remotely and UserID is set. Guest
// lines live in the local device-scoped store and carry no UserID.
type CartLine struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id,omitempty" gorm:"index;type:varchar(36)"`
	ProductID string    `json:"product_id" gorm:"index;type:varchar(36)"`
	VariantID string    `json:"variant_id,omitempty" gorm:"type:varchar(36)"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Denormalized display snapshot, populated on read. Never persisted as
	// part of the line itself.
	Product *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Variant *ProductVariant `json:"variant,omitempty" gorm:"foreignKey:VariantID"`
}

// MergeKey identifies the line for duplicate detection and sign-in merging.
// Lines with equal keys are the same logical entry regardless of which store
// they live in.
func (l *CartLine) MergeKey() string {
	return l.ProductID + "|" + l.VariantID
}

// UnitPrice is the effective price for one unit: the variant price when the
// line has a variant with its own price, otherwise the product price.
func (l *CartLine) UnitPrice() float64 {
	if l.Variant != nil && l.Variant.Price != nil {
		return *l.Variant.Price
	}
	if l.Product != nil {
		return l.Product.Price
	}
	return 0
}

// Cart is the read model over a set of cart lines. TotalItems and TotalPrice
// are recomputed from the lines on every read and never stored.
type Cart struct {
	Lines      []CartLine `json:"lines"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
}
