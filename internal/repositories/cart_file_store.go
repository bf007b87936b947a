package repositories

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"shoply/internal/models"

	"github.com/google/uuid"
)

// localCartRecord is the on-disk guest cart format: a JSON array of these
// records, one file per device scope. The format must round-trip exactly
// since the file is the sole durability mechanism for guest carts.
type localCartRecord struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	VariantID string    `json:"variantId,omitempty"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FileCartStore is the local cart backend for guests. Each device scope maps
// to one JSON file under dir. Lines carry no product snapshot on disk; the
// cart service enriches them from the catalog on read.
type FileCartStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileCartStore creates a FileCartStore rooted at dir, creating the
// directory if needed.
func NewFileCartStore(dir string) (*FileCartStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create guest cart dir %s: %w", dir, err)
	}
	return &FileCartStore{dir: dir}, nil
}

func (s *FileCartStore) path(scope string) (string, error) {
	if scope == "" || strings.ContainsAny(scope, `/\.`) {
		return "", fmt.Errorf("invalid cart scope %q", scope)
	}
	return filepath.Join(s.dir, scope+".json"), nil
}

func (s *FileCartStore) read(scope string) ([]localCartRecord, error) {
	path, err := s.path(scope)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read guest cart %s: %w", scope, err)
	}
	var records []localCartRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart %s: %w", scope, err)
	}
	return records, nil
}

func (s *FileCartStore) write(scope string, records []localCartRecord) error {
	path, err := s.path(scope)
	if err != nil {
		return err
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart %s: %w", scope, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write guest cart %s: %w", scope, err)
	}
	return nil
}

// List returns every line in the device scope.
func (s *FileCartStore) List(scope string) ([]models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(scope)
	if err != nil {
		return nil, err
	}
	lines := make([]models.CartLine, 0, len(records))
	for _, rec := range records {
		lines = append(lines, models.CartLine{
			ID:        rec.ID,
			ProductID: rec.ProductID,
			VariantID: rec.VariantID,
			Quantity:  rec.Quantity,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return lines, nil
}

// Insert appends a new line to the device scope.
func (s *FileCartStore) Insert(scope string, line *models.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(scope)
	if err != nil {
		return err
	}
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	records = append(records, localCartRecord{
		ID:        line.ID,
		ProductID: line.ProductID,
		VariantID: line.VariantID,
		Quantity:  line.Quantity,
		CreatedAt: line.CreatedAt,
		UpdatedAt: line.UpdatedAt,
	})
	return s.write(scope, records)
}

// UpdateQuantity replaces the quantity of a line in the device scope.
func (s *FileCartStore) UpdateQuantity(scope, lineID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(scope)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == lineID {
			records[i].Quantity = quantity
			records[i].UpdatedAt = time.Now().UTC()
			return s.write(scope, records)
		}
	}
	return ErrNotFound
}

// Remove deletes a line from the device scope. Removing an absent line
// succeeds.
func (s *FileCartStore) Remove(scope, lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(scope)
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, rec := range records {
		if rec.ID != lineID {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	return s.write(scope, kept)
}

// Clear deletes the device scope's file entirely.
func (s *FileCartStore) Clear(scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(scope)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear guest cart %s: %w", scope, err)
	}
	return nil
}
