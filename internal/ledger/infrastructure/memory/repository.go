package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	ledger "pos-backoffice/internal/ledger/domain"
)

// JournalRepository is an in-memory journal store for unit tests. The entry
// log is append-only; AppendEntry applies an entry as one indivisible unit
// under the lock.
type JournalRepository struct {
	mu       sync.RWMutex
	accounts map[ledger.AccountID]ledger.Account
	entries  []ledger.JournalEntry
}

// NewJournalRepository constructs a repository.
func NewJournalRepository() *JournalRepository {
	return &JournalRepository{accounts: make(map[ledger.AccountID]ledger.Account)}
}

// Accounts lists the chart of accounts ordered by code.
func (r *JournalRepository) Accounts(ctx context.Context) ([]ledger.Account, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	accounts := make([]ledger.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts, nil
}

// AccountByID loads one account, or nil when absent.
func (r *JournalRepository) AccountByID(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	return &account, nil
}

// SeedAccounts registers accounts that do not exist yet.
func (r *JournalRepository) SeedAccounts(ctx context.Context, accounts []ledger.Account) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range accounts {
		if _, exists := r.accounts[account.ID]; !exists {
			r.accounts[account.ID] = account
		}
	}
	return nil
}

// AppendEntry appends the entry atomically.
func (r *JournalRepository) AppendEntry(ctx context.Context, entry ledger.JournalEntry) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.append(entry)
	return nil
}

// append stores a detached copy. Callers must hold the write lock.
func (r *JournalRepository) append(entry ledger.JournalEntry) {
	entry.Postings = append([]ledger.Posting(nil), entry.Postings...)
	r.entries = append(r.entries, entry)
}

// ApplyStaged appends several entries under one lock acquisition. The memory
// unit of work uses it to mirror a storage-level transaction.
func (r *JournalRepository) ApplyStaged(entries []ledger.JournalEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range entries {
		r.append(entry)
	}
}

// EntriesThrough returns entries posted at or before asOf.
func (r *JournalRepository) EntriesThrough(ctx context.Context, asOf time.Time) ([]ledger.JournalEntry, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter(func(entry ledger.JournalEntry) bool {
		return !entry.PostedAt.After(asOf)
	}), nil
}

// EntriesBetween returns entries in the half-open window [from, to).
func (r *JournalRepository) EntriesBetween(ctx context.Context, from, to time.Time) ([]ledger.JournalEntry, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter(func(entry ledger.JournalEntry) bool {
		return !entry.PostedAt.Before(from) && entry.PostedAt.Before(to)
	}), nil
}

// EntriesBySource returns entries referencing the source transaction.
func (r *JournalRepository) EntriesBySource(ctx context.Context, sourceTransactionID string) ([]ledger.JournalEntry, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter(func(entry ledger.JournalEntry) bool {
		return entry.SourceTransactionID == sourceTransactionID
	}), nil
}

func (r *JournalRepository) filter(keep func(ledger.JournalEntry) bool) []ledger.JournalEntry {
	var result []ledger.JournalEntry
	for _, entry := range r.entries {
		if keep(entry) {
			clone := entry
			clone.Postings = append([]ledger.Posting(nil), entry.Postings...)
			result = append(result, clone)
		}
	}
	return result
}
