package services

import (
	"errors"
	"log"
	"time"

	"shoply/internal/models"
	"shoply/internal/repositories"

	"github.com/google/uuid"
)

// Identity names the owner of a cart. A caller with a UserID operates on the
// remote store; a guest operates on the local store under their DeviceID.
type Identity struct {
	UserID   string
	DeviceID string
}

// Authenticated reports whether the identity belongs to a signed-in user.
func (id Identity) Authenticated() bool {
	return id.UserID != ""
}

func (id Identity) scope() string {
	if id.Authenticated() {
		return id.UserID
	}
	return id.DeviceID
}

// CartService presents a single cart abstraction regardless of
// authentication state. It selects the authoritative store per call and
// migrates guest state into the account cart on sign-in.
type CartService struct {
	local       repositories.CartStore
	remote      repositories.CartStore
	productRepo repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(local, remote repositories.CartStore, productRepo repositories.ProductRepository) *CartService {
	return &CartService{
		local:       local,
		remote:      remote,
		productRepo: productRepo,
	}
}

// store returns the authoritative backend for the identity.
func (s *CartService) store(id Identity) repositories.CartStore {
	if id.Authenticated() {
		return s.remote
	}
	return s.local
}

// AddItem adds quantity units of a product (optionally a specific variant) to
// the authoritative cart. If a line for the same (product, variant) already
// exists its quantity is incremented; the merge key is product+variant, never
// a generated line ID.
func (s *CartService) AddItem(identity Identity, productID, variantID string, quantity int) (*models.CartLine, error) {
	if quantity < 1 {
		return nil, &ValidationError{Field: "quantity", Reason: "must be a positive integer"}
	}

	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &NotFoundError{Resource: "product", ID: productID}
		}
		return nil, &BackendError{Op: "add item", Err: err}
	}
	if !product.IsActive() {
		return nil, &ValidationError{Field: "product", Reason: "product is not available for purchase"}
	}

	var variant *models.ProductVariant
	if variantID != "" {
		variant = product.Variant(variantID)
		if variant == nil {
			return nil, &NotFoundError{Resource: "product variant", ID: variantID}
		}
	}

	store := s.store(identity)
	scope := identity.scope()

	lines, err := store.List(scope)
	if err != nil {
		return nil, &BackendError{Op: "add item", Err: err}
	}

	key := productID + "|" + variantID
	for i := range lines {
		if lines[i].MergeKey() == key {
			if err := store.UpdateQuantity(scope, lines[i].ID, lines[i].Quantity+quantity); err != nil {
				return nil, &BackendError{Op: "add item", Err: err}
			}
			lines[i].Quantity += quantity
			lines[i].Product = product
			lines[i].Variant = variant
			return &lines[i], nil
		}
	}

	now := time.Now()
	line := &models.CartLine{
		ID:        uuid.New().String(),
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.Insert(scope, line); err != nil {
		return nil, &BackendError{Op: "add item", Err: err}
	}
	line.Product = product
	line.Variant = variant
	return line, nil
}

// RemoveItem deletes a line from the authoritative cart. Removing a line that
// is already gone succeeds, so repeated clicks stay idempotent; only a
// backend failure is an error.
func (s *CartService) RemoveItem(identity Identity, lineID string) error {
	if err := s.store(identity).Remove(identity.scope(), lineID); err != nil {
		return &BackendError{Op: "remove item", Err: err}
	}
	return nil
}

// UpdateQuantity replaces a line's quantity. A quantity of zero or less is
// defined to be equivalent to RemoveItem.
func (s *CartService) UpdateQuantity(identity Identity, lineID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(identity, lineID)
	}
	err := s.store(identity).UpdateQuantity(identity.scope(), lineID, quantity)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &NotFoundError{Resource: "cart line", ID: lineID}
		}
		return &BackendError{Op: "update quantity", Err: err}
	}
	return nil
}

// ClearCart deletes every line in the authoritative scope. Checkout calls
// this exactly once per successful order, after the order and its lines are
// durably recorded, never before.
func (s *CartService) ClearCart(identity Identity) error {
	if err := s.store(identity).Clear(identity.scope()); err != nil {
		return &BackendError{Op: "clear cart", Err: err}
	}
	return nil
}

// GetCart returns the cart read model. TotalItems and TotalPrice are
// recomputed from the current lines on every call; they are never stored.
// Lines whose product has disappeared from the catalog are dropped from the
// view rather than failing the whole read.
func (s *CartService) GetCart(identity Identity) (*models.Cart, error) {
	lines, err := s.store(identity).List(identity.scope())
	if err != nil {
		return nil, &BackendError{Op: "get cart", Err: err}
	}

	cart := &models.Cart{Lines: make([]models.CartLine, 0, len(lines))}
	for _, line := range lines {
		if line.Product == nil {
			product, err := s.productRepo.GetByID(line.ProductID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					log.Printf("Dropping cart line %s: product %s no longer exists", line.ID, line.ProductID)
					continue
				}
				return nil, &BackendError{Op: "get cart", Err: err}
			}
			line.Product = product
			if line.VariantID != "" {
				line.Variant = product.Variant(line.VariantID)
			}
		}
		if line.Variant == nil && line.VariantID != "" && line.Product != nil {
			line.Variant = line.Product.Variant(line.VariantID)
		}
		cart.Lines = append(cart.Lines, line)
		cart.TotalItems += line.Quantity
		cart.TotalPrice += float64(line.Quantity) * line.UnitPrice()
	}
	return cart, nil
}

// MergeOnSignIn migrates a guest's locally persisted lines into the user's
// remote cart. Lines are merged key-wise by (product, variant): keys present
// in both stores get the SUM of the two quantities, keys present only locally
// are created remotely, keys present only remotely are left untouched.
//
// The local scope is cleared only after every key migrated, so a failed merge
// preserves the guest's lines and a retry re-runs the whole merge. Once the
// local store is empty a second merge is a no-op, which keeps the operation
// idempotent across re-renders of the sign-in transition.
//
// Summed quantities may exceed available inventory; checkout re-validates
// stock and rejects there, so nothing the guest added is silently dropped.
func (s *CartService) MergeOnSignIn(deviceID, userID string) error {
	if userID == "" {
		return &ValidationError{Field: "user", Reason: "merge requires an authenticated user"}
	}
	if deviceID == "" {
		return &ValidationError{Field: "device", Reason: "merge requires a device scope"}
	}

	localLines, err := s.local.List(deviceID)
	if err != nil {
		return &BackendError{Op: "merge sign-in cart", Err: err}
	}
	if len(localLines) == 0 {
		return nil
	}

	remoteLines, err := s.remote.List(userID)
	if err != nil {
		return &BackendError{Op: "merge sign-in cart", Err: err}
	}
	remoteByKey := make(map[string]*models.CartLine, len(remoteLines))
	for i := range remoteLines {
		remoteByKey[remoteLines[i].MergeKey()] = &remoteLines[i]
	}

	for _, local := range localLines {
		if remote, ok := remoteByKey[local.MergeKey()]; ok {
			err = s.remote.UpdateQuantity(userID, remote.ID, remote.Quantity+local.Quantity)
		} else {
			now := time.Now()
			err = s.remote.Insert(userID, &models.CartLine{
				ID:        uuid.New().String(),
				ProductID: local.ProductID,
				VariantID: local.VariantID,
				Quantity:  local.Quantity,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		if err != nil {
			// Local lines stay put so no guest data is lost; the caller
			// retries or notifies the user.
			return &BackendError{Op: "merge sign-in cart", Err: err}
		}
	}

	if err := s.local.Clear(deviceID); err != nil {
		return &BackendError{Op: "merge sign-in cart", Err: err}
	}
	return nil
}
