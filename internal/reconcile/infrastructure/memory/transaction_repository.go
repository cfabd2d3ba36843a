package memory

import (
	"context"
	"sort"
	"sync"

	reconcile "pos-backoffice/internal/reconcile/domain"
)

// TransactionRepository is an in-memory transaction store for tests and
// dev mode. Inserts come from the in-memory unit of work.
type TransactionRepository struct {
	mu       sync.Mutex
	byID     map[string]*reconcile.Transaction
	byIntent map[string]string
}

// NewTransactionRepository constructs an in-memory transaction repository.
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		byID:     make(map[string]*reconcile.Transaction),
		byIntent: make(map[string]string),
	}
}

// Get returns a transaction by id.
func (r *TransactionRepository) Get(_ context.Context, id string) (*reconcile.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn, ok := r.byID[id]
	if !ok {
		return nil, reconcile.ErrTransactionNotFound
	}
	clone := *txn
	return &clone, nil
}

// GetByIntent returns the transaction captured for an intent.
func (r *TransactionRepository) GetByIntent(_ context.Context, intentID string) (*reconcile.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byIntent[intentID]
	if !ok {
		return nil, reconcile.ErrTransactionNotFound
	}
	clone := *r.byID[id]
	return &clone, nil
}

// List returns recent transactions newest first.
func (r *TransactionRepository) List(_ context.Context, limit int) ([]reconcile.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	result := make([]reconcile.Transaction, 0, len(r.byID))
	for _, txn := range r.byID {
		result = append(result, *txn)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Count returns the number of stored transactions.
func (r *TransactionRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *TransactionRepository) apply(txn *reconcile.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *txn
	r.byID[txn.ID] = &clone
	r.byIntent[txn.IntentID] = txn.ID
}

// applyIf flips the stored transaction to txn only while it still has the
// expected status. It is the serialization point for reversals.
func (r *TransactionRepository) applyIf(txn *reconcile.Transaction, expect reconcile.TransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byID[txn.ID]
	if !ok {
		return reconcile.ErrTransactionNotFound
	}
	if current.Status != expect {
		return reconcile.ErrAlreadyReversed
	}
	clone := *txn
	r.byID[txn.ID] = &clone
	return nil
}
