package memory

import (
	"context"
	"sync"
	"time"

	order "pos-backoffice/internal/order/domain"
)

// OrderStore is an in-memory order store.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]*order.Order
}

// NewOrderStore constructs a store.
func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]*order.Order)}
}

// Get returns a detached copy of the order.
func (s *OrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	_ = ctx
	s.mu.RLock()
	ord := s.orders[id]
	s.mu.RUnlock()
	if ord == nil {
		return nil, order.ErrOrderNotFound
	}
	return cloneOrder(ord), nil
}

// Put stores an order (overwrites existing).
func (s *OrderStore) Put(ctx context.Context, ord *order.Order) error {
	_ = ctx
	if ord == nil || ord.ID == "" {
		return order.ErrEmptyOrderID
	}
	s.mu.Lock()
	s.orders[ord.ID] = cloneOrder(ord)
	s.mu.Unlock()
	return nil
}

// UpdateStatus writes the order status.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status order.Status, at time.Time) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ord := s.orders[id]
	if ord == nil {
		return order.ErrOrderNotFound
	}
	ord.Status = status
	ord.UpdatedAt = at.UTC()
	return nil
}

func cloneOrder(ord *order.Order) *order.Order {
	clone := *ord
	clone.Items = append([]order.LineItem(nil), ord.Items...)
	return &clone
}
