package repositories

import (
	"sync"
	"time"

	"shoply/internal/models"

	"github.com/google/uuid"
)

// MockCartStore is an in-memory implementation of CartStore used in tests.
type MockCartStore struct {
	lines map[string][]models.CartLine // keyed by scope
	mu    sync.RWMutex
}

// NewMockCartStore creates a new instance of MockCartStore.
func NewMockCartStore() *MockCartStore {
	return &MockCartStore{
		lines: make(map[string][]models.CartLine),
	}
}

// List returns every line in the scope.
func (s *MockCartStore) List(scope string) ([]models.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.CartLine, len(s.lines[scope]))
	copy(out, s.lines[scope])
	return out, nil
}

// Insert adds a new line to the scope.
func (s *MockCartStore) Insert(scope string, line *models.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	s.lines[scope] = append(s.lines[scope], *line)
	return nil
}

// UpdateQuantity replaces the quantity of a line in the scope.
func (s *MockCartStore) UpdateQuantity(scope, lineID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines[scope] {
		if s.lines[scope][i].ID == lineID {
			s.lines[scope][i].Quantity = quantity
			s.lines[scope][i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

// Remove deletes a line from the scope; absent lines are a no-op.
func (s *MockCartStore) Remove(scope, lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.lines[scope][:0]
	for _, line := range s.lines[scope] {
		if line.ID != lineID {
			kept = append(kept, line)
		}
	}
	s.lines[scope] = kept
	return nil
}

// Clear deletes every line in the scope.
func (s *MockCartStore) Clear(scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.lines, scope)
	return nil
}
