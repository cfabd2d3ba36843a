package ledger

import (
	"time"

	"pos-backoffice/internal/money"
)

// JournalEntryID identifies a journal entry.
type JournalEntryID string

// Posting is one side of a journal entry: an amount debited or credited to an
// account. Amounts are always non-negative; direction lives in Side.
type Posting struct {
	AccountID AccountID
	Side      Side
	Amount    money.Money
}

// JournalEntry is one atomic, balanced set of postings. Entries are immutable
// once created; corrections are reversing entries, never edits.
type JournalEntry struct {
	ID                  JournalEntryID
	PostedAt            time.Time
	SourceTransactionID string
	Postings            []Posting
}

// NewJournalEntry validates and constructs an entry. The fundamental invariant
// sum(debits) == sum(credits) in a single currency is checked here, before any
// entry value can exist.
func NewJournalEntry(id JournalEntryID, postedAt time.Time, sourceTransactionID string, postings []Posting) (JournalEntry, error) {
	if id == "" {
		return JournalEntry{}, ErrEmptyEntryID
	}
	if sourceTransactionID == "" {
		return JournalEntry{}, ErrEmptySource
	}
	entry := JournalEntry{
		ID:                  id,
		PostedAt:            postedAt.UTC(),
		SourceTransactionID: sourceTransactionID,
		Postings:            append([]Posting(nil), postings...),
	}
	if err := entry.Validate(); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// Validate checks the entry's structural invariants.
func (e JournalEntry) Validate() error {
	if len(e.Postings) < 2 {
		return ErrNoPostings
	}
	currency := e.Postings[0].Amount.Currency
	var debits, credits int64
	for _, posting := range e.Postings {
		if posting.AccountID == "" {
			return ErrEmptyAccountID
		}
		if posting.Amount.IsNegative() {
			return ErrNegativePosting
		}
		if posting.Amount.Currency != currency {
			return money.ErrCurrencyMismatch
		}
		switch posting.Side {
		case SideDebit:
			debits += posting.Amount.Amount
		case SideCredit:
			credits += posting.Amount.Amount
		default:
			return ErrInvalidSide
		}
	}
	if debits != credits {
		return ErrUnbalancedEntry
	}
	return nil
}

// Currency returns the single currency all postings share.
func (e JournalEntry) Currency() string {
	if len(e.Postings) == 0 {
		return ""
	}
	return e.Postings[0].Amount.Currency
}

// Reversal builds the mirror entry: same amounts with debit and credit
// swapped, referencing the same source transaction.
func (e JournalEntry) Reversal(id JournalEntryID, at time.Time) (JournalEntry, error) {
	postings := make([]Posting, 0, len(e.Postings))
	for _, posting := range e.Postings {
		side := SideDebit
		if posting.Side == SideDebit {
			side = SideCredit
		}
		postings = append(postings, Posting{
			AccountID: posting.AccountID,
			Side:      side,
			Amount:    posting.Amount,
		})
	}
	return NewJournalEntry(id, at, e.SourceTransactionID, postings)
}
