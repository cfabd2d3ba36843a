package memory

import (
	"context"
	"sync"
	"time"

	invoice "pos-backoffice/internal/invoice/domain"
)

// Repository is an in-memory invoice repository for tests and dev mode.
type Repository struct {
	mu      sync.Mutex
	byID    map[string]*invoice.Invoice
	byTxnID map[string]string
}

// NewRepository constructs an in-memory invoice repository.
func NewRepository() *Repository {
	return &Repository{
		byID:    make(map[string]*invoice.Invoice),
		byTxnID: make(map[string]string),
	}
}

// Insert stores a new invoice, enforcing one invoice per transaction.
func (r *Repository) Insert(_ context.Context, inv *invoice.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byTxnID[inv.TransactionID]; exists {
		return invoice.ErrDuplicateInvoice
	}
	clone := cloneInvoice(inv)
	r.byID[inv.ID] = clone
	r.byTxnID[inv.TransactionID] = inv.ID
	return nil
}

// Get returns the invoice by id.
func (r *Repository) Get(_ context.Context, id string) (*invoice.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok {
		return nil, invoice.ErrInvoiceNotFound
	}
	return cloneInvoice(inv), nil
}

// GetByTransaction returns the invoice issued for a transaction.
func (r *Repository) GetByTransaction(_ context.Context, transactionID string) (*invoice.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byTxnID[transactionID]
	if !ok {
		return nil, invoice.ErrInvoiceNotFound
	}
	return cloneInvoice(r.byID[id]), nil
}

// Update persists the payment annotation fields, guarded by the update
// time the caller read. Concurrent writers lose with ErrStaleInvoice.
func (r *Repository) Update(_ context.Context, inv *invoice.Invoice, expect time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[inv.ID]
	if !ok {
		return invoice.ErrInvoiceNotFound
	}
	if !stored.UpdatedAt.Equal(expect) {
		return invoice.ErrStaleInvoice
	}
	stored.AmountPaid = inv.AmountPaid
	stored.AmountRefunded = inv.AmountRefunded
	stored.PaymentStatus = inv.PaymentStatus
	stored.UpdatedAt = inv.UpdatedAt
	return nil
}

// Count returns the number of stored invoices.
func (r *Repository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func cloneInvoice(inv *invoice.Invoice) *invoice.Invoice {
	clone := *inv
	clone.Items = make([]invoice.LineItem, len(inv.Items))
	copy(clone.Items, inv.Items)
	return &clone
}
