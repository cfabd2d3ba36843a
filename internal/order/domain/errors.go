package order

import "errors"

var (
	// ErrEmptyOrderID is returned when an order id is missing.
	ErrEmptyOrderID = errors.New("order: empty order id")
	// ErrEmptyCustomerID is returned when a customer reference is missing.
	ErrEmptyCustomerID = errors.New("order: empty customer id")
	// ErrNoLineItems is returned when an order carries no line items.
	ErrNoLineItems = errors.New("order: no line items")
	// ErrInvalidQuantity is returned for a non-positive line item quantity.
	ErrInvalidQuantity = errors.New("order: invalid quantity")
	// ErrIllegalTransition is returned for a status transition the state machine forbids.
	ErrIllegalTransition = errors.New("order: illegal status transition")
	// ErrOrderNotFound is returned when an order does not exist.
	ErrOrderNotFound = errors.New("order: not found")
)
