package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	ledger "pos-backoffice/internal/ledger/domain"
)

// JournalRepository persists the chart of accounts and the append-only
// journal in Postgres (or SQLite via the same database/sql surface).
type JournalRepository struct {
	db *sql.DB
}

// NewJournalRepository constructs a repository.
func NewJournalRepository(db *sql.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Accounts lists the chart of accounts.
func (r *JournalRepository) Accounts(ctx context.Context) ([]ledger.Account, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("journal repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, code, name, account_type, normal_side, currency
FROM ledger_accounts
ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		var account ledger.Account
		if err := rows.Scan(&account.ID, &account.Code, &account.Name,
			&account.Type, &account.NormalSide, &account.Currency); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// AccountByID loads one account, or nil when absent.
func (r *JournalRepository) AccountByID(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("journal repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, code, name, account_type, normal_side, currency
FROM ledger_accounts
WHERE id = $1`, id)
	var account ledger.Account
	err := row.Scan(&account.ID, &account.Code, &account.Name,
		&account.Type, &account.NormalSide, &account.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// SeedAccounts inserts accounts that do not exist yet.
func (r *JournalRepository) SeedAccounts(ctx context.Context, accounts []ledger.Account) error {
	if r == nil || r.db == nil {
		return errors.New("journal repo: nil db")
	}
	for _, account := range accounts {
		_, err := r.db.ExecContext(ctx, `
INSERT INTO ledger_accounts (id, code, name, account_type, normal_side, currency)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id)
DO NOTHING`, account.ID, account.Code, account.Name, account.Type, account.NormalSide, account.Currency)
		if err != nil {
			return err
		}
	}
	return nil
}

// AppendEntry writes the entry and its postings in one transaction.
func (r *JournalRepository) AppendEntry(ctx context.Context, entry ledger.JournalEntry) error {
	if r == nil || r.db == nil {
		return errors.New("journal repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := AppendEntryTx(ctx, tx, entry); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// AppendEntryTx writes an entry inside an existing transaction. The
// reconciliation unit of work uses it to link the journal append with the
// transaction and invoice writes atomically.
func AppendEntryTx(ctx context.Context, tx *sql.Tx, entry ledger.JournalEntry) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO journal_entries (id, posted_at, source_transaction_id)
VALUES ($1,$2,$3)`, entry.ID, entry.PostedAt, entry.SourceTransactionID)
	if err != nil {
		return err
	}
	for position, posting := range entry.Postings {
		_, err := tx.ExecContext(ctx, `
INSERT INTO journal_postings (entry_id, position, account_id, side, amount, currency)
VALUES ($1,$2,$3,$4,$5,$6)`,
			entry.ID, position, posting.AccountID, posting.Side,
			posting.Amount.Amount, posting.Amount.Currency)
		if err != nil {
			return err
		}
	}
	return nil
}

// EntriesThrough returns entries posted at or before asOf.
func (r *JournalRepository) EntriesThrough(ctx context.Context, asOf time.Time) ([]ledger.JournalEntry, error) {
	return r.queryEntries(ctx, `
SELECT e.id, e.posted_at, e.source_transaction_id, p.account_id, p.side, p.amount, p.currency
FROM journal_entries e
JOIN journal_postings p ON p.entry_id = e.id
WHERE e.posted_at <= $1
ORDER BY e.posted_at ASC, e.id ASC, p.position ASC`, asOf.UTC())
}

// EntriesBetween returns entries in the half-open window [from, to).
func (r *JournalRepository) EntriesBetween(ctx context.Context, from, to time.Time) ([]ledger.JournalEntry, error) {
	return r.queryEntries(ctx, `
SELECT e.id, e.posted_at, e.source_transaction_id, p.account_id, p.side, p.amount, p.currency
FROM journal_entries e
JOIN journal_postings p ON p.entry_id = e.id
WHERE e.posted_at >= $1 AND e.posted_at < $2
ORDER BY e.posted_at ASC, e.id ASC, p.position ASC`, from.UTC(), to.UTC())
}

// EntriesBySource returns entries referencing the source transaction.
func (r *JournalRepository) EntriesBySource(ctx context.Context, sourceTransactionID string) ([]ledger.JournalEntry, error) {
	return r.queryEntries(ctx, `
SELECT e.id, e.posted_at, e.source_transaction_id, p.account_id, p.side, p.amount, p.currency
FROM journal_entries e
JOIN journal_postings p ON p.entry_id = e.id
WHERE e.source_transaction_id = $1
ORDER BY e.posted_at ASC, e.id ASC, p.position ASC`, sourceTransactionID)
}

func (r *JournalRepository) queryEntries(ctx context.Context, query string, args ...any) ([]ledger.JournalEntry, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("journal repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.JournalEntry
	var current *ledger.JournalEntry
	for rows.Next() {
		var (
			id       ledger.JournalEntryID
			postedAt time.Time
			source   string
			posting  ledger.Posting
		)
		if err := rows.Scan(&id, &postedAt, &source,
			&posting.AccountID, &posting.Side, &posting.Amount.Amount, &posting.Amount.Currency); err != nil {
			return nil, err
		}
		if current == nil || current.ID != id {
			entries = append(entries, ledger.JournalEntry{
				ID:                  id,
				PostedAt:            postedAt.UTC(),
				SourceTransactionID: source,
			})
			current = &entries[len(entries)-1]
		}
		current.Postings = append(current.Postings, posting)
	}
	return entries, rows.Err()
}
