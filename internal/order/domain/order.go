package order

import (
	"context"
	"time"

	"pos-backoffice/internal/money"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
	StatusCancelled       Status = "cancelled"
	StatusFailed          Status = "failed"
)

// legalTransitions is the single source of allowed status moves. Paid and
// Cancelled are terminal; a Failed order may retry payment.
var legalTransitions = map[Status][]Status{
	StatusDraft:           {StatusAwaitingPayment, StatusCancelled},
	StatusAwaitingPayment: {StatusPaid, StatusFailed, StatusCancelled},
	StatusFailed:          {StatusAwaitingPayment, StatusCancelled},
}

// CanTransition reports whether moving from to next is legal.
func CanTransition(from, next Status) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LineItem is an ordered product with its unit price snapshot.
type LineItem struct {
	ProductID   string      `json:"product_id"`
	Description string      `json:"description"`
	Quantity    int64       `json:"quantity"`
	UnitPrice   money.Money `json:"unit_price"`
}

// Total returns quantity * unit price.
func (li LineItem) Total() (money.Money, error) {
	if li.Quantity <= 0 {
		return money.Money{}, ErrInvalidQuantity
	}
	return li.UnitPrice.MultiplyQuantity(li.Quantity)
}

// Order is a customer order as provided by the catalog/cart flow. The
// reconciliation core reads it and writes its terminal status.
type Order struct {
	ID         string
	CustomerID string
	Items      []LineItem
	Total      money.Money
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New validates and constructs an order, computing its total from the items.
// An invalid order is not representable after construction.
func New(id, customerID string, items []LineItem, createdAt time.Time) (Order, error) {
	if id == "" {
		return Order{}, ErrEmptyOrderID
	}
	if customerID == "" {
		return Order{}, ErrEmptyCustomerID
	}
	if len(items) == 0 {
		return Order{}, ErrNoLineItems
	}
	total, err := items[0].Total()
	if err != nil {
		return Order{}, err
	}
	for _, item := range items[1:] {
		lineTotal, err := item.Total()
		if err != nil {
			return Order{}, err
		}
		total, err = total.Add(lineTotal)
		if err != nil {
			return Order{}, err
		}
	}
	return Order{
		ID:         id,
		CustomerID: customerID,
		Items:      append([]LineItem(nil), items...),
		Total:      total,
		Status:     StatusDraft,
		CreatedAt:  createdAt.UTC(),
		UpdatedAt:  createdAt.UTC(),
	}, nil
}

// TransitionTo moves the order to next, rejecting illegal transitions.
func (o *Order) TransitionTo(next Status, at time.Time) error {
	if o.Status == next {
		return nil
	}
	if !CanTransition(o.Status, next) {
		return ErrIllegalTransition
	}
	o.Status = next
	o.UpdatedAt = at.UTC()
	return nil
}

// Store reads orders and writes their terminal status. Order creation belongs
// to the catalog flow; the core only needs these two operations plus seeding.
type Store interface {
	Get(ctx context.Context, id string) (*Order, error)
	Put(ctx context.Context, ord *Order) error
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error
}
