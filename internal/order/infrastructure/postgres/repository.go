package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	order "pos-backoffice/internal/order/domain"
)

// OrderStore persists orders. Line items are stored as a JSON snapshot since
// the core never queries into them.
type OrderStore struct {
	db *sql.DB
}

// NewOrderStore constructs a store.
func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

// Get loads an order.
func (s *OrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("order store: nil db")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT id, customer_id, line_items, total_amount, currency, status, created_at, updated_at
FROM orders
WHERE id = $1`, id)

	var ord order.Order
	var items []byte
	err := row.Scan(&ord.ID, &ord.CustomerID, &items, &ord.Total.Amount, &ord.Total.Currency,
		&ord.Status, &ord.CreatedAt, &ord.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &ord.Items); err != nil {
		return nil, err
	}
	return &ord, nil
}

// Put inserts or replaces an order.
func (s *OrderStore) Put(ctx context.Context, ord *order.Order) error {
	if s == nil || s.db == nil {
		return errors.New("order store: nil db")
	}
	if ord == nil || ord.ID == "" {
		return order.ErrEmptyOrderID
	}
	items, err := json.Marshal(ord.Items)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO orders (id, customer_id, line_items, total_amount, currency, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id)
DO UPDATE SET line_items = $3, total_amount = $4, currency = $5, status = $6, updated_at = $8`,
		ord.ID, ord.CustomerID, items, ord.Total.Amount, ord.Total.Currency,
		ord.Status, ord.CreatedAt, ord.UpdatedAt)
	return err
}

// UpdateStatus writes the order status.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status order.Status, at time.Time) error {
	if s == nil || s.db == nil {
		return errors.New("order store: nil db")
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE orders
SET status = $1, updated_at = $2
WHERE id = $3`, status, at.UTC(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}
