package services

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when a checkout session is driven into a
// state its current state has no edge to.
var ErrIllegalTransition = errors.New("illegal checkout state transition")

// ValidationError reports bad input. It is surfaced immediately at the call
// site and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NotFoundError reports that an operation targeted a missing resource. It is
// distinct from the idempotent "already removed" cases, which succeed.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// BackendError reports that a storage backend was unreachable or rejected an
// operation. Cart mutations that hit one are left un-applied.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error during %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// PaymentError reports a gateway rejection, a widget-reported failure, or a
// user cancellation.
type PaymentError struct {
	Reason   string
	Canceled bool
}

func (e *PaymentError) Error() string {
	if e.Canceled {
		return "payment canceled: " + e.Reason
	}
	return "payment failed: " + e.Reason
}

// ConsistencyError reports that a payment was captured but the order could
// not be recorded. It is always surfaced, never swallowed, and the cart is
// left intact so the paid-for intent is recoverable.
type ConsistencyError struct {
	PaymentID string
	Err       error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("payment %s captured, order recording failed: %v (contact support)", e.PaymentID, e.Err)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }
