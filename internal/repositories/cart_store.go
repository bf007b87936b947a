package repositories

import (
	"shoply/internal/models"
)

// CartStore is the contract both cart backends implement. The scope argument
// names the owner of the lines: a user ID for the remote store, a device ID
// for the local guest store. Exactly one store is authoritative for a caller
// at any moment; the cart service selects it from the authentication state.
type CartStore interface {
	// List returns every line in the scope.
	List(scope string) ([]models.CartLine, error)

	// Insert adds a new line to the scope. Callers are responsible for the
	// one-line-per-(product, variant) invariant; stores do not enforce it.
	Insert(scope string, line *models.CartLine) error

	// UpdateQuantity replaces the stored quantity of the line and refreshes
	// its update timestamp. Returns ErrNotFound if the line does not exist.
	UpdateQuantity(scope, lineID string, quantity int) error

	// Remove deletes the line. Removing an absent line is not an error, so
	// repeated removal stays idempotent.
	Remove(scope, lineID string) error

	// Clear deletes every line in the scope.
	Clear(scope string) error
}
