package ledger

import "errors"

var (
	// ErrUnbalancedEntry is returned when debits and credits do not match.
	ErrUnbalancedEntry = errors.New("ledger: unbalanced entry")
	// ErrUnknownAccount is returned when a posting references a missing account.
	ErrUnknownAccount = errors.New("ledger: unknown account")
	// ErrEmptyEntryID is returned when a journal entry id is missing.
	ErrEmptyEntryID = errors.New("ledger: empty entry id")
	// ErrNoPostings is returned when an entry carries fewer than two postings.
	ErrNoPostings = errors.New("ledger: entry needs at least two postings")
	// ErrNegativePosting is returned when a posting amount is negative.
	ErrNegativePosting = errors.New("ledger: negative posting amount")
	// ErrInvalidSide is returned when a posting side is neither debit nor credit.
	ErrInvalidSide = errors.New("ledger: invalid posting side")
	// ErrEmptyAccountID is returned when an account id is missing.
	ErrEmptyAccountID = errors.New("ledger: empty account id")
	// ErrInvalidAccountType is returned for an unknown account type.
	ErrInvalidAccountType = errors.New("ledger: invalid account type")
	// ErrEntryNotFound is returned when a journal entry does not exist.
	ErrEntryNotFound = errors.New("ledger: entry not found")
	// ErrEmptySource is returned when an entry has no source transaction reference.
	ErrEmptySource = errors.New("ledger: empty source reference")
)
