package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"shoply/internal/models"
	"shoply/internal/repositories"
	"shoply/pkg/rabbitmq"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CheckoutState is a state of the payment flow state machine.
type CheckoutState string

const (
	CheckoutStateIdle                  CheckoutState = "IDLE"
	CheckoutStateAwaitingAuthorization CheckoutState = "AWAITING_AUTHORIZATION"
	CheckoutStateAwaitingWidgetResult  CheckoutState = "AWAITING_WIDGET_RESULT"
	CheckoutStatePersistingOrder       CheckoutState = "PERSISTING_ORDER"
	CheckoutStateSucceeded             CheckoutState = "SUCCEEDED"
	CheckoutStateFailed                CheckoutState = "FAILED"
)

// IsTerminal reports whether the state admits no further transitions.
func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStateSucceeded || s == CheckoutStateFailed
}

// String representation (for logging)
func (s CheckoutState) String() string {
	return string(s)
}

// checkoutTransitions encodes the legal edges of the flow. The cart is
// cleared only on the PersistingOrder -> Succeeded edge, which makes the
// "never clear the cart before the order is recorded" invariant mechanically
// checkable.
var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutStateIdle:                  {CheckoutStateAwaitingAuthorization},
	CheckoutStateAwaitingAuthorization: {CheckoutStateAwaitingWidgetResult, CheckoutStateFailed},
	CheckoutStateAwaitingWidgetResult:  {CheckoutStatePersistingOrder, CheckoutStateFailed},
	CheckoutStatePersistingOrder:       {CheckoutStateSucceeded, CheckoutStateFailed},
}

// Totals rules: free shipping from the threshold up, flat fee below it, tax
// as a fraction of the subtotal.
const (
	freeShippingThreshold = 50.0
	flatShippingFee       = 9.99
	taxRate               = 0.08
	defaultCurrency       = "INR"
)

// PaymentGateway is the payment-authorization boundary. The gateway is the
// only party holding the secret credential; it exchanges an amount in the
// smallest currency unit for an opaque order reference.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency string) (string, error)
	VerifySignature(orderRef, paymentID, signature string) error
}

// BeginCheckoutRequest carries the checkout form input.
type BeginCheckoutRequest struct {
	Shipping      models.Address `json:"shipping" validate:"required"`
	Billing       models.Address `json:"billing" validate:"required"`
	PaymentMethod string         `json:"payment_method" validate:"required,oneof=card upi netbanking"`
	Currency      string         `json:"currency" validate:"omitempty,len=3"`
}

// CheckoutSession is one run of the payment flow for one cart.
type CheckoutSession struct {
	ID             string            `json:"id"`
	Identity       Identity          `json:"-"`
	State          CheckoutState     `json:"state"`
	OrderReference string            `json:"order_reference"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Subtotal       float64           `json:"subtotal"`
	ShippingCost   float64           `json:"shipping_cost"`
	Tax            float64           `json:"tax"`
	Total          float64           `json:"total"`
	Shipping       models.Address    `json:"shipping"`
	Billing        models.Address    `json:"billing"`
	PaymentMethod  string            `json:"payment_method"`
	Lines          []models.CartLine `json:"-"`
	Failure        *PaymentError     `json:"-"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (s *CheckoutSession) transition(to CheckoutState) error {
	for _, next := range checkoutTransitions[s.State] {
		if next == to {
			s.State = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.State, to)
}

// CheckoutService drives the checkout flow: authorize the amount with the
// gateway, wait for the widget result, persist the order, then clear the
// cart. Ordering is fixed: payment success, then order row, then order lines,
// then cart clear. A persistence failure after payment success surfaces a
// ConsistencyError and leaves the cart untouched.
type CheckoutService struct {
	carts     *CartService
	orderRepo repositories.OrderRepository
	gateway   PaymentGateway
	mqClient  *rabbitmq.Client // may be nil; events are best-effort
	validate  *validator.Validate

	mu       sync.Mutex
	sessions map[string]*CheckoutSession // keyed by order reference
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(carts *CartService, orderRepo repositories.OrderRepository, gateway PaymentGateway, mqClient *rabbitmq.Client) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		orderRepo: orderRepo,
		gateway:   gateway,
		mqClient:  mqClient,
		validate:  validator.New(),
		sessions:  make(map[string]*CheckoutSession),
	}
}

// Begin validates the checkout form and the cart, computes the amount in the
// smallest currency unit and requests an order reference from the gateway.
// On success the session is waiting for the widget result.
func (s *CheckoutService) Begin(ctx context.Context, identity Identity, req BeginCheckoutRequest) (*CheckoutSession, error) {
	if err := s.validate.Struct(req); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			return nil, &ValidationError{
				Field:  fieldErrs[0].Namespace(),
				Reason: fmt.Sprintf("failed on the '%s' tag", fieldErrs[0].Tag()),
			}
		}
		return nil, &ValidationError{Field: "request", Reason: err.Error()}
	}

	cart, err := s.carts.GetCart(identity)
	if err != nil {
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return nil, &ValidationError{Field: "cart", Reason: "cart is empty, nothing to checkout"}
	}

	// Merge-on-sign-in sums quantities without capping at inventory, so the
	// stock check lives here instead.
	for _, line := range cart.Lines {
		available := line.Product.Inventory
		if line.Variant != nil {
			available = line.Variant.Inventory
		}
		if line.Quantity > available {
			return nil, &ValidationError{
				Field:  "cart",
				Reason: fmt.Sprintf("insufficient stock for %s (requested: %d, available: %d)", line.Product.Name, line.Quantity, available),
			}
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	subtotal := cart.TotalPrice
	shippingCost := flatShippingFee
	if subtotal >= freeShippingThreshold {
		shippingCost = 0
	}
	tax := subtotal * taxRate
	total := subtotal + shippingCost + tax
	amount := int64(math.Round(total * 100))

	session := &CheckoutSession{
		ID:            uuid.New().String(),
		Identity:      identity,
		State:         CheckoutStateIdle,
		Amount:        amount,
		Currency:      currency,
		Subtotal:      subtotal,
		ShippingCost:  shippingCost,
		Tax:           tax,
		Total:         total,
		Shipping:      req.Shipping,
		Billing:       req.Billing,
		PaymentMethod: req.PaymentMethod,
		Lines:         cart.Lines,
		CreatedAt:     time.Now(),
	}
	if err := session.transition(CheckoutStateAwaitingAuthorization); err != nil {
		return nil, err
	}

	orderRef, err := s.gateway.CreateOrder(ctx, amount, currency)
	if err != nil {
		session.State = CheckoutStateFailed
		return nil, &PaymentError{Reason: err.Error()}
	}
	session.OrderReference = orderRef
	if err := session.transition(CheckoutStateAwaitingWidgetResult); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[orderRef] = session
	s.mu.Unlock()

	return session, nil
}

// CompletePayment handles the widget's success callback. The order and every
// order line are durably recorded before the cart is cleared; if recording
// fails after the payment succeeded the cart is NOT cleared and a
// ConsistencyError is returned so the paid-for intent is recoverable.
func (s *CheckoutService) CompletePayment(ctx context.Context, orderRef, paymentID, signature string) (*models.Order, error) {
	session, err := s.session(orderRef)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.VerifySignature(orderRef, paymentID, signature); err != nil {
		// A bad signature is not a widget result; the session keeps waiting.
		return nil, &PaymentError{Reason: "payment signature verification failed"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := session.transition(CheckoutStatePersistingOrder); err != nil {
		return nil, err
	}

	order, err := s.buildOrder(session, paymentID)
	if err != nil {
		session.State = CheckoutStateFailed
		return nil, &ConsistencyError{PaymentID: paymentID, Err: err}
	}
	if err := s.orderRepo.Create(order); err != nil {
		session.State = CheckoutStateFailed
		return nil, &ConsistencyError{PaymentID: paymentID, Err: err}
	}

	// The order is durable; clearing the cart is now safe. A clear failure
	// must not undo the recorded order, so it is logged and swallowed.
	if err := s.carts.ClearCart(session.Identity); err != nil {
		log.Printf("Order %s recorded but cart clear failed: %v", order.ID, err)
	}

	if err := session.transition(CheckoutStateSucceeded); err != nil {
		return nil, err
	}

	s.publishOrderCreated(order)
	return order, nil
}

// FailPayment handles the widget's failure or cancellation callback. The
// session records the PaymentError and the cart is left untouched so the user
// can retry.
func (s *CheckoutService) FailPayment(orderRef, reason string, canceled bool) error {
	session, err := s.session(orderRef)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := session.transition(CheckoutStateFailed); err != nil {
		return err
	}
	session.Failure = &PaymentError{Reason: reason, Canceled: canceled}
	return nil
}

// Session returns the session bound to an order reference.
func (s *CheckoutService) Session(orderRef string) (*CheckoutSession, error) {
	return s.session(orderRef)
}

func (s *CheckoutService) session(orderRef string) (*CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[orderRef]
	if !ok {
		return nil, &NotFoundError{Resource: "checkout session", ID: orderRef}
	}
	return session, nil
}

// buildOrder snapshots the session's cart lines into an immutable order.
// Prices are frozen at purchase time, not read live from the catalog.
func (s *CheckoutService) buildOrder(session *CheckoutSession, paymentID string) (*models.Order, error) {
	shippingJSON, err := json.Marshal(session.Shipping)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot shipping address: %w", err)
	}
	billingJSON, err := json.Marshal(session.Billing)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot billing address: %w", err)
	}

	order := &models.Order{
		ID:              uuid.New().String(),
		UserID:          session.Identity.UserID,
		OrderNumber:     fmt.Sprintf("ORD-%d", time.Now().UnixMilli()),
		Status:          models.OrderStatusProcessing,
		TotalAmount:     session.Total,
		ShippingAddress: shippingJSON,
		BillingAddress:  billingJSON,
		PaymentStatus:   models.PaymentStatusPaid,
		PaymentMethod:   session.PaymentMethod,
		PaymentID:       paymentID,
	}
	for _, line := range session.Lines {
		orderLine := models.OrderLine{
			ID:          uuid.New().String(),
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			ProductName: line.Product.Name,
			UnitPrice:   line.UnitPrice(),
			Quantity:    line.Quantity,
		}
		if line.Variant != nil {
			orderLine.VariantOptions = line.Variant.Options
		}
		order.Lines = append(order.Lines, orderLine)
	}
	return order, nil
}

// publishOrderCreated emits an order.created event. Event delivery is
// best-effort and never fails the order.
func (s *CheckoutService) publishOrderCreated(order *models.Order) {
	if s.mqClient == nil {
		return
	}
	event := rabbitmq.OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		Total:       order.TotalAmount,
	}
	if err := s.mqClient.PublishOrderCreated(event); err != nil {
		log.Printf("Warning: Failed to publish order created event for order %s: %v", order.ID, err)
	} else {
		log.Printf("Successfully published order created event for order %s", order.ID)
	}
}
