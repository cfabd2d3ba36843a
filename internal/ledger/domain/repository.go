package ledger

import (
	"context"
	"time"
)

// Repository is the append-only journal store. AppendEntry is atomic: a
// concurrent reader never observes a half-applied entry, and an appended
// entry is immediately visible to queries.
type Repository interface {
	Accounts(ctx context.Context) ([]Account, error)
	AccountByID(ctx context.Context, id AccountID) (*Account, error)
	SeedAccounts(ctx context.Context, accounts []Account) error

	AppendEntry(ctx context.Context, entry JournalEntry) error
	// EntriesThrough returns entries with PostedAt <= asOf in posting order.
	EntriesThrough(ctx context.Context, asOf time.Time) ([]JournalEntry, error)
	// EntriesBetween returns entries in the half-open window [from, to).
	EntriesBetween(ctx context.Context, from, to time.Time) ([]JournalEntry, error)
	// EntriesBySource returns all entries referencing a source transaction,
	// oldest first (the original entry, then any reversals).
	EntriesBySource(ctx context.Context, sourceTransactionID string) ([]JournalEntry, error)
}
