package application

import (
	"context"
	"time"

	invoice "pos-backoffice/internal/invoice/domain"
	ledger "pos-backoffice/internal/ledger/domain"
	order "pos-backoffice/internal/order/domain"
	reconcile "pos-backoffice/internal/reconcile/domain"
)

// CaptureSet is everything the capture path writes. The unit of work
// commits all of it in one storage transaction, including marking the
// idempotency key completed, so a crash leaves either the full triple
// or nothing.
type CaptureSet struct {
	IdempotencyKey string
	Result         []byte
	Transaction    *reconcile.Transaction
	Invoice        *invoice.Invoice
	Entry          ledger.JournalEntry
	OrderStatus    order.Status
	At             time.Time
}

// ReversalSet is everything a reversal writes atomically.
type ReversalSet struct {
	Transaction *reconcile.Transaction
	Invoice     *invoice.Invoice

	// InvoiceReadAt is the invoice update time observed before the refund
	// was applied. It guards the invoice write against concurrent
	// annotation updates.
	InvoiceReadAt time.Time
	Entry         ledger.JournalEntry
	At            time.Time
}

// UnitOfWork commits the multi-record writes of the reconciliation
// pipeline atomically.
type UnitOfWork interface {
	CommitCapture(ctx context.Context, set CaptureSet) error
	CommitReversal(ctx context.Context, set ReversalSet) error
}
