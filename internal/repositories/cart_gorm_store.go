package repositories

import (
	"fmt"
	"time"

	"shoply/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCartStore is the remote cart backend. Lines are rows keyed by user ID;
// ownership checks are explicit user_id predicates on every query.
type GORMCartStore struct {
	db *gorm.DB
}

// NewGORMCartStore creates a new instance of GORMCartStore.
func NewGORMCartStore(db *gorm.DB) *GORMCartStore {
	return &GORMCartStore{
		db: db,
	}
}

// List returns the user's lines with product and variant snapshots preloaded.
func (s *GORMCartStore) List(scope string) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := s.db.
		Where("user_id = ?", scope).
		Preload("Product").
		Preload("Product.Variants").
		Preload("Variant").
		Order("created_at asc").
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines for user %s: %w", scope, err)
	}
	return lines, nil
}

// Insert adds a new line owned by the user.
func (s *GORMCartStore) Insert(scope string, line *models.CartLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	line.UserID = scope
	// Persist only the row fields; the display snapshot is read-side state.
	record := models.CartLine{
		ID:        line.ID,
		UserID:    line.UserID,
		ProductID: line.ProductID,
		VariantID: line.VariantID,
		Quantity:  line.Quantity,
		CreatedAt: line.CreatedAt,
		UpdatedAt: line.UpdatedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert cart line: %w", err)
	}
	return nil
}

// UpdateQuantity replaces the quantity of the user's line.
func (s *GORMCartStore) UpdateQuantity(scope, lineID string, quantity int) error {
	res := s.db.Model(&models.CartLine{}).
		Where("id = ? AND user_id = ?", lineID, scope).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update cart line %s: %w", lineID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes the user's line. Deleting an absent line succeeds.
func (s *GORMCartStore) Remove(scope, lineID string) error {
	if err := s.db.Delete(&models.CartLine{}, "id = ? AND user_id = ?", lineID, scope).Error; err != nil {
		return fmt.Errorf("failed to remove cart line %s: %w", lineID, err)
	}
	return nil
}

// Clear deletes every line owned by the user.
func (s *GORMCartStore) Clear(scope string) error {
	if err := s.db.Delete(&models.CartLine{}, "user_id = ?", scope).Error; err != nil {
		return fmt.Errorf("failed to clear cart for user %s: %w", scope, err)
	}
	return nil
}
