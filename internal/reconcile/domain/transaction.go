package domain

import (
	"context"
	"time"

	"pos-backoffice/internal/money"
)

// TransactionStatus tracks the lifecycle of a captured payment.
type TransactionStatus string

const (
	// TransactionStatusCompleted is the status at capture time. A transaction
	// record only exists once the gateway reported a definitive success.
	TransactionStatusCompleted TransactionStatus = "completed"
	// TransactionStatusReversed marks a compensated transaction.
	TransactionStatusReversed TransactionStatus = "reversed"
)

// Transaction is the reconciliation record tying an order to its gateway
// capture, invoice and journal entry.
type Transaction struct {
	ID        string            `json:"id"`
	OrderID   string            `json:"order_id"`
	IntentID  string            `json:"intent_id"`
	Amount    money.Money       `json:"amount"`
	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// TransactionStore provides transaction reads. Writes happen through the
// unit of work so they commit together with invoice and journal entry.
type TransactionStore interface {
	Get(ctx context.Context, id string) (*Transaction, error)
	GetByIntent(ctx context.Context, intentID string) (*Transaction, error)
	List(ctx context.Context, limit int) ([]Transaction, error)
}
